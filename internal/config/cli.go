package config

// FlagOverrides carries CLI flag values that, when explicitly set, take
// precedence over file and environment configuration. A nil field
// means the flag was never passed.
type FlagOverrides struct {
	LogLevel    *string
	Port        *uint16
	ServerURI   *string
	MaxmindID   *string
	MaxmindPass *string
	AdminPort   *uint16
	NoAdmin     *bool
}

// ApplyTo overlays any set override onto settings.
func (f *FlagOverrides) ApplyTo(settings *Settings) {
	if f.LogLevel != nil {
		settings.LogLevel = *f.LogLevel
	}
	if f.Port != nil {
		settings.Listener.Port = *f.Port
	}
	if f.ServerURI != nil {
		settings.Server.URI = *f.ServerURI
	}
	if f.MaxmindID != nil {
		settings.Server.MaxmindID = *f.MaxmindID
	}
	if f.MaxmindPass != nil {
		settings.Server.MaxmindPassword = *f.MaxmindPass
	}
	if f.AdminPort != nil {
		settings.Admin.Port = *f.AdminPort
	}
	if f.NoAdmin != nil && *f.NoAdmin {
		settings.Admin.Enabled = false
	}
}
