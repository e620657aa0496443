package basepilot_test

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bft-labs/basepilot"
)

// ExampleRun rotates the base in place for five seconds and prints every
// odometry report.
func ExampleRun() {
	cfg := basepilot.DefaultConfig()
	cfg.Endpoint = "ws://192.168.1.10:8439/api"
	cfg.Duration = 5 * time.Second
	cfg.Target = basepilot.Velocity{AngularZ: 0.3}

	summary, err := basepilot.Run(context.Background(), cfg,
		basepilot.WithReporter(basepilot.ReporterFunc(func(s basepilot.Snapshot) {
			fmt.Printf("x=%.2f y=%.2f yaw=%.2f\n", s.X, s.Y, s.Heading)
		})))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println("motion commands:", summary.MotionsSent)
}

// ExamplePilot_Stop steers a run from another goroutine.
func ExamplePilot_Stop() {
	cfg := basepilot.DefaultConfig()
	cfg.Endpoint = "ws://192.168.1.10:8439/api"
	cfg.Duration = 0

	p, err := basepilot.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	go func() {
		time.Sleep(2 * time.Second)
		_ = p.Setpoint().Set(basepilot.Velocity{LinearX: 0.1})
		time.Sleep(2 * time.Second)
		p.Stop()
	}()
	if _, err := p.Run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}
