// Package domain contains the core entities and value objects for basepilot.
//
// This package is the innermost layer. It has no dependencies on transport,
// encoding or logging and holds only the shapes the control session works
// with and the rules attached to them.
//
// # Entities
//
//   - [Frame]: one binary unit exchanged over the WebSocket connection
//   - [Command]: downlink commands ([MotionCommand], [InitializeCommand],
//     [ReportFrequencyCommand]) numbered by a [Sequencer]
//   - [Message]: uplink messages ([StatusMessage], [LogMessage],
//     [UnknownMessage])
//   - [OdometrySnapshot]: the robot's reported pose and velocity
//
// # Design Principles
//
// Commands, messages and snapshots are immutable values. They are built once
// and passed by value to the encoder, the reporters and the run summary.
package domain
