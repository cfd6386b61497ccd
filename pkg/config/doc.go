// Package config loads the device configuration.
//
// Configuration is a YAML file whose every field has a default, so an empty
// or absent file yields a working setup. A few environment variables
// override the file for quick field changes:
//
//	BUTTON_LOG_LEVEL    debug, info, warn, error, or a tag name (data, event, important)
//	BUTTON_APP_ENV      dev or prod
//	BUTTON_CREDENTIALS  path of the credential file
//
// Durations are written as Go duration strings ("1500ms", "3m").
package config
