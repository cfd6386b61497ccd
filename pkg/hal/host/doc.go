// Package host implements the radio and supply sensor of a Linux board.
//
// The radio is driven through NetworkManager's nmcli; association is read
// from sysfs. The supply voltage comes from an IIO ADC channel.
package host
