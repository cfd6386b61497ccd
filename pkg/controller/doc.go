// Package controller runs one wake cycle of the button.
//
// Boot latches power, loads credentials and selects the operating mode for
// the whole cycle:
//
//   - Normal (credentials present): a press of the trigger creates a
//     message, the session joins the stored network and the delivery engine
//     posts the message to a discovered receiver.
//   - Provisioning (no credentials): an open access point comes up, a
//     setup message is created at once and delivery runs every tick so a
//     provisioner on the access point can answer with credentials.
//
// Each Tick then polls, in order: the factory-reset input, the trigger
// (Normal), the session (Normal), the delivery engine, the inactivity timer
// (Normal), the safety ceiling and the update listener. Every path out of
// the cycle ends in exactly one power.Sleep.
package controller
