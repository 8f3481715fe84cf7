package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
)

var (
	thresholdOrderTag  = "threshold_order"
	thresholdOrderText = "critical threshold must be lower than the warning threshold"
)

// InitValidators registers the attendance validations. core.InitValidators must run first.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(settingsStructValidation, Settings{})
	core.RegisterCustomTranslation(validate, translator, thresholdOrderTag, thresholdOrderText)
}

// settingsStructValidation checks that the critical threshold stays below the warning one.
func settingsStructValidation(sl validator.StructLevel) {
	s, ok := sl.Current().Interface().(Settings)
	if !ok {
		return
	}
	if s.CriticalThreshold >= s.WarningThreshold {
		sl.ReportError(s.CriticalThreshold, "critical_threshold", "CriticalThreshold", thresholdOrderTag, "")
	}
}
