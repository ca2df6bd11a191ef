// Package control maps the lander's state estimate [h, v, g] to a thrust
// command. Controllers implement [dynamo.Controller]:
//
//   - [LQR]: state feedback from a finite-horizon gain schedule
//   - [PID]: descent-rate hold with gravity feedforward
//   - [None]: zero thrust
//
// # Usage
//
//	sched, _ := reg.Schedule()
//	ctrl := control.NewLQR(sched, control.Receding)
//	ctrl.MaxThrust = 20
//	u := ctrl.Compute(estimate, step)
package control
