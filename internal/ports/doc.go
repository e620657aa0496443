// Package ports defines the interfaces that connect the control loop to
// infrastructure adapters.
//
// # Port Interfaces
//
//   - [Dialer] and [Session]: the WebSocket transport to the robot
//   - [Reporter]: receives each accepted odometry snapshot
//   - [Pacer]: paces control ticks
//   - [Setpoint]: supplies the current target velocity
//   - [RunRepository]: persists run summaries
//   - [Logger]: structured logging abstraction
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters under internal/adapters implement them with gorilla/websocket,
// Prometheus, the console and the file system.
package ports
