package attendance

// Settings are the attendance preferences of the student.
type Settings struct {
	EmailNotifications bool `json:"email_notifications"`
	SMSNotifications   bool `json:"sms_notifications"`
	PushNotifications  bool `json:"push_notifications"`
	ReminderTime       int  `json:"reminder_time" validate:"min=5,max=60,step=5"` // minutes before class
	WarningThreshold   int  `json:"warning_threshold" validate:"min=60,max=85,step=5"`
	CriticalThreshold  int  `json:"critical_threshold" validate:"min=50,max=75,step=5"`
}

func DefaultSettings() Settings {
	return Settings{
		EmailNotifications: true,
		SMSNotifications:   false,
		PushNotifications:  true,
		ReminderTime:       15,
		WarningThreshold:   int(DefaultThresholds.Warning),
		CriticalThreshold:  int(DefaultThresholds.Critical),
	}
}

func (s Settings) Thresholds() Thresholds {
	return Thresholds{Warning: float64(s.WarningThreshold), Critical: float64(s.CriticalThreshold)}
}

// AnyNotifications reports whether at least one channel is enabled.
func (s Settings) AnyNotifications() bool {
	return s.EmailNotifications || s.SMSNotifications || s.PushNotifications
}

// SettingsPatch defines what may be provided to modify the Settings; nil fields are kept.
type SettingsPatch struct {
	EmailNotifications *bool `json:"email_notifications"`
	SMSNotifications   *bool `json:"sms_notifications"`
	PushNotifications  *bool `json:"push_notifications"`
	ReminderTime       *int  `json:"reminder_time"`
	WarningThreshold   *int  `json:"warning_threshold"`
	CriticalThreshold  *int  `json:"critical_threshold"`
}

func (p SettingsPatch) IsEmpty() bool {
	return p.EmailNotifications == nil && p.SMSNotifications == nil && p.PushNotifications == nil &&
		p.ReminderTime == nil && p.WarningThreshold == nil && p.CriticalThreshold == nil
}

// Apply returns a copy of s with the patch applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.EmailNotifications != nil {
		s.EmailNotifications = *p.EmailNotifications
	}
	if p.SMSNotifications != nil {
		s.SMSNotifications = *p.SMSNotifications
	}
	if p.PushNotifications != nil {
		s.PushNotifications = *p.PushNotifications
	}
	if p.ReminderTime != nil {
		s.ReminderTime = *p.ReminderTime
	}
	if p.WarningThreshold != nil {
		s.WarningThreshold = *p.WarningThreshold
	}
	if p.CriticalThreshold != nil {
		s.CriticalThreshold = *p.CriticalThreshold
	}
	return s
}
