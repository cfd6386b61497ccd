// Package hal defines the hardware surface the control loop drives.
//
// The loop never touches GPIO lines, the Wi-Fi radio or the ADC directly.
// It talks to the small interfaces below, which are implemented by:
//
//   - hal/gpio: Linux GPIO character device lines (go-gpiocdev)
//   - hal/host: NetworkManager-managed Wi-Fi and IIO voltage sampling
//   - hal/sim:  in-memory hardware for tests and the interactive simulator
//
// # Levels
//
// Inputs report the electrical level (true = high). Which level means
// "pressed" is configuration: the trigger switch is normally closed and reads
// high when pressed, the factory-reset switch is normally open with a
// pull-up and reads low when pressed.
package hal
