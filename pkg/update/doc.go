// Package update makes the device findable by an external firmware updater.
//
// The update transport itself is not part of this repository. What the
// control loop needs is a Listener it can begin once the network is up and
// service on every tick. Announcer implements it by advertising the
// "_pizza-ota._tcp" service over mDNS under the pizza-sms-button hostname,
// retrying in the background with backoff when registration fails.
package update
