package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Default is the fallback target language.
const Default = "en"

// Language is a translation target offered to the user.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

var supported = []Language{
	{"en", "English", "🇬🇧"},
	{"fr", "French", "🇫🇷"},
	{"es", "Spanish", "🇪🇸"},
	{"de", "German", "🇩🇪"},
	{"it", "Italian", "🇮🇹"},
	{"pt", "Portuguese", "🇵🇹"},
	{"nl", "Dutch", "🇳🇱"},
	{"pl", "Polish", "🇵🇱"},
	{"ru", "Russian", "🇷🇺"},
	{"tr", "Turkish", "🇹🇷"},
}

type entry struct {
	code2   string   // ISO 639-1 (2-letter)
	code3   string   // ISO 639-2 primary (3-letter)
	alt3    string   // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string   // Human-readable name
	words   []string // Full word forms (e.g. "english")
}

// Languages a menu is commonly detected in. Wider than the supported
// translation targets.
var languages = []entry{
	{"en", "eng", "", "English", []string{"english"}},
	{"es", "spa", "", "Spanish", []string{"spanish", "español"}},
	{"fr", "fra", "fre", "French", []string{"french", "français"}},
	{"de", "deu", "ger", "German", []string{"german", "deutsch"}},
	{"it", "ita", "", "Italian", []string{"italian", "italiano"}},
	{"pt", "por", "", "Portuguese", []string{"portuguese", "português"}},
	{"nl", "nld", "dut", "Dutch", []string{"dutch", "nederlands"}},
	{"pl", "pol", "", "Polish", []string{"polish", "polski"}},
	{"ru", "rus", "", "Russian", []string{"russian"}},
	{"tr", "tur", "", "Turkish", []string{"turkish", "türkçe"}},
	{"ja", "jpn", "", "Japanese", []string{"japanese"}},
	{"ko", "kor", "", "Korean", []string{"korean"}},
	{"zh", "zho", "chi", "Chinese", []string{"chinese"}},
	{"th", "tha", "", "Thai", []string{"thai"}},
	{"vi", "vie", "", "Vietnamese", []string{"vietnamese"}},
	{"el", "ell", "gre", "Greek", []string{"greek"}},
	{"ar", "ara", "", "Arabic", []string{"arabic"}},
	{"hi", "hin", "", "Hindi", []string{"hindi"}},
}

// Index maps built at init time.
var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages)*2)
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Supported returns the translation targets in menu order.
func Supported() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// Find returns the supported language for code after normalization.
func Find(code string) (Language, bool) {
	iso := ToISO2(code)
	for _, l := range supported {
		if l.Code == iso {
			return l, true
		}
	}
	return Language{}, false
}

// IsSupported reports whether code normalizes to a translation target.
func IsSupported(code string) bool {
	_, ok := Find(code)
	return ok
}

// ToISO2 converts a language code, BCP 47 tag ("fr-CA"), ISO 639-2 code or
// English word to ISO 639-1. Returns "" for unrecognized input and for
// "unknown".
func ToISO2(code string) string {
	code = strings.ToLower(strings.Trim(strings.TrimSpace(code), `"'.`))
	if code == "" || code == "unknown" || code == "und" {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	tag, err := xlanguage.Parse(code)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No {
		return ""
	}
	iso := base.String()
	if len(iso) != 2 {
		return ""
	}
	return iso
}

// DisplayName returns an English name for code. Returns "Unknown" for empty
// input, or the uppercased code when nothing matches.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	if iso := ToISO2(code); iso != "" {
		if name := display.English.Languages().Name(xlanguage.Make(iso)); name != "" {
			return name
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}
