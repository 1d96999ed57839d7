package icon

import "strings"

// DefaultCode is the clear-sky day icon used when no code is available.
const DefaultCode = "01d"

const basePath = "icons"

// noVariant lists icon families with a single artwork for day and night.
// For these the trailing d/n suffix is dropped when resolving the path.
var noVariant = map[string]bool{
	"04": true, "09": true, "10": true, "11": true, "13": true,
	"15": true, "22": true, "30": true, "31": true, "32": true,
	"33": true, "34": true, "46": true, "47": true, "48": true,
	"49": true, "50": true,
}

// Path maps a vendor icon code to a local image path, falling back to the
// clear-sky day icon. It never fails; malformed input degrades to the
// fallback.
func Path(code string) string {
	return PathOr(code, DefaultCode)
}

// PathOr is Path with an explicit fallback code.
func PathOr(code, fallback string) string {
	if code == "" {
		code = fallback
	}
	if len(code) >= 3 {
		family, suffix := code[:2], code[2:]
		if (suffix == "d" || suffix == "n") && noVariant[family] {
			code = family
		}
	}
	return basePath + "/" + code + ".png"
}

// FromCondition heuristically maps a free-text condition phrase to an icon
// code by substring matching in a fixed priority order. Unmatched text maps
// to clear sky for the given day/night suffix.
func FromCondition(text string, isDay bool) string {
	suffix := "n"
	if isDay {
		suffix = "d"
	}
	s := strings.ToLower(text)
	switch {
	case strings.Contains(s, "clear"):
		return "01" + suffix
	case strings.Contains(s, "cloud"):
		switch {
		case strings.Contains(s, "few"):
			return "02" + suffix
		case strings.Contains(s, "scattered"):
			return "03" + suffix
		case strings.Contains(s, "broken"), strings.Contains(s, "overcast"):
			return "04" + suffix
		default:
			return "03" + suffix
		}
	case strings.Contains(s, "rain"):
		if strings.Contains(s, "shower") {
			return "09" + suffix
		}
		return "10" + suffix
	case strings.Contains(s, "drizzle"):
		return "09" + suffix
	case strings.Contains(s, "thunderstorm"):
		return "11" + suffix
	case strings.Contains(s, "snow"):
		return "13" + suffix
	case strings.Contains(s, "mist"), strings.Contains(s, "fog"), strings.Contains(s, "haze"):
		return "50" + suffix
	default:
		return "01" + suffix
	}
}
