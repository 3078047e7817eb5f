package tenant

import (
	"fmt"
	"regexp"

	"github.com/hugh/inkpress/internal/apperr"
)

const maxFontFamilyLength = 100

var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func IsValidHexColor(s string) bool {
	return hexColorRegex.MatchString(s)
}

// ValidateThemePatch checks the known keys of a theme update. Unknown keys
// pass through untouched.
func ValidateThemePatch(patch map[string]any) error {
	if len(patch) == 0 {
		return apperr.Validation("Theme settings must be a non-empty object", nil)
	}

	details := map[string]string{}
	for _, key := range []string{"primaryColor", "secondaryColor"} {
		v, ok := patch[key]
		if !ok {
			continue
		}
		s, isString := v.(string)
		if !isString || !IsValidHexColor(s) {
			details[key] = "Must be a hex color such as #4f46e5"
		}
	}

	if v, ok := patch["fontFamily"]; ok {
		s, isString := v.(string)
		switch {
		case !isString:
			details["fontFamily"] = "Must be a string"
		case len(s) > maxFontFamilyLength:
			details["fontFamily"] = fmt.Sprintf("Must be at most %d characters", maxFontFamilyLength)
		}
	}

	if len(details) > 0 {
		return apperr.Validation("Invalid theme settings", details)
	}
	return nil
}
