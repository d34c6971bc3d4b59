package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"laptop-intelligence/models"
	"laptop-intelligence/utils"
)

// ParseError reports a spec sheet that could not be used: either the PDF
// itself is unreadable or no recognizable field was found in its text.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// specPatterns holds, per recognized attribute, the regex set used to locate
// values in spec sheet text. Order matters: earlier patterns yield the
// canonical (first) value.
var specPatterns = map[string][]*regexp.Regexp{
	models.AttrCPU: {
		regexp.MustCompile(`(?i)(?:intel|amd)[\s®]*(?:core\s*)?(?:i[3579]|ryzen|pentium|celeron)[\s-]*\d*[a-z]*\d*[a-z]*`),
		regexp.MustCompile(`(?i)processor:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)cpu:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\b(?:i3|i5|i7|i9)[\s-]\d{4}[a-z]*\b`),
		regexp.MustCompile(`(?i)\bryzen\s*[357]\s*\d{4}[a-z]*\b`),
	},
	models.AttrRAM: {
		regexp.MustCompile(`(?i)\b\d+\s*gb\s*(?:ddr[45]|lpddr[45]|memory|ram)\b`),
		regexp.MustCompile(`(?i)\b(?:4|8|16|32|64)\s*gb\s*(?:memory|ram)\b`),
		regexp.MustCompile(`(?i)memory:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\b\d+\s*gb\s*ddr[45][\s-]\d+\b`),
	},
	models.AttrStorage: {
		regexp.MustCompile(`(?i)\b\d+\s*(?:gb|tb)\s*(?:ssd|nvme|m\.2|pcie)\b`),
		regexp.MustCompile(`(?i)\b(?:256|512|1024|1|2)\s*(?:gb|tb)\s*ssd\b`),
		regexp.MustCompile(`(?i)storage:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\b\d+\s*(?:gb|tb)\s*(?:hard\s*drive|hdd)\b`),
	},
	models.AttrDisplay: {
		regexp.MustCompile(`(?i)\b1[34]\.\d+["']\s*(?:fhd|hd|4k|oled|ips|lcd)\b`),
		regexp.MustCompile(`(?i)\b\d{4}\s*[x×]\s*\d{4}\s*(?:resolution|pixels?)\b`),
		regexp.MustCompile(`(?i)display:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\b(?:14|15\.6|13\.3)["']\s*(?:screen|display|monitor)\b`),
	},
	models.AttrGraphics: {
		regexp.MustCompile(`(?i)(?:intel|amd|nvidia)[\s®]*(?:iris|radeon|geforce|gtx|rtx|uhd|xe)\s*(?:graphics?|gpu)?\s*\d*[a-z]*`),
		regexp.MustCompile(`(?i)graphics:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\b(?:integrated|discrete)\s*graphics?\b`),
		regexp.MustCompile(`(?i)\bgtx\s*\d{4}[a-z]*\b|\brtx\s*\d{4}[a-z]*\b`),
	},
	models.AttrBattery: {
		regexp.MustCompile(`(?i)\b\d+\s*wh\s*(?:battery|lithium)\b`),
		regexp.MustCompile(`(?i)\b\d+[\s-]cell\s*battery\b`),
		regexp.MustCompile(`(?i)battery:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\b(?:up\s*to\s*)?\d+\s*hours?\s*battery\s*life\b`),
	},
	models.AttrPorts: {
		regexp.MustCompile(`(?i)\b\d+\s*[x×]\s*usb[\s-]?[abc]?\s*(?:\d\.\d)?\b`),
		regexp.MustCompile(`(?i)\b(?:hdmi|thunderbolt|displayport|ethernet|rj[\s-]?45)\b`),
		regexp.MustCompile(`(?i)ports?:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\b(?:audio|headphone)\s*(?:jack|port)\b`),
	},
	models.AttrDimensions: {
		regexp.MustCompile(`(?i)\b\d+\.?\d*\s*[x×]\s*\d+\.?\d*\s*[x×]\s*\d+\.?\d*\s*(?:mm|cm|in|inches?)\b`),
		regexp.MustCompile(`(?i)dimensions:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\b(?:width|height|depth):\s*\d+\.?\d*\s*(?:mm|cm|in)\b`),
	},
	models.AttrWeight: {
		regexp.MustCompile(`(?i)\b\d+\.?\d*\s*(?:kg|lbs?|pounds?)\b`),
		regexp.MustCompile(`(?i)weight:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\bstarting\s*(?:at\s*)?\d+\.?\d*\s*(?:kg|lbs?)\b`),
	},
	models.AttrOperatingSystem: {
		regexp.MustCompile(`(?i)windows\s*\d+\s*(?:home|pro|enterprise)?`),
		regexp.MustCompile(`(?i)(?:ubuntu|linux|chrome\s*os|mac\s*os)`),
		regexp.MustCompile(`(?i)operating\s*system:\s*([^\n\r]+)`),
		regexp.MustCompile(`(?i)\b(?:dos|free\s*dos|no\s*os)\b`),
	},
}

// otherLabelPattern catches labeled fields the enumeration above doesn't
// cover (e.g. "Webcam: 1080p FHD"), which go into the Other bucket.
var otherLabelPattern = regexp.MustCompile(`(?im)^([a-z][a-z /-]{2,30}):\s+([^\n\r]{3,80})$`)

const (
	maxValuesPerAttr = 5
	maxValueLen      = 100
)

// Parser extracts normalized specification maps from spec sheet PDFs.
type Parser struct {
	logger *utils.Logger
}

// New creates a Parser with the given logger.
func New(logger *utils.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse reads the PDF at pdfPath and returns its extracted specification
// document. It fails with a *ParseError when the document cannot be opened
// or no recognized field matches; it never retries.
func (p *Parser) Parse(pdfPath, modelKey string) (*models.SpecDocument, error) {
	text, err := extractText(pdfPath)
	if err != nil {
		return nil, &ParseError{Path: pdfPath, Reason: "cannot read document", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Path: pdfPath, Reason: "document contains no extractable text"}
	}

	specs := p.extractSpecs(text)
	if specs.IsEmpty() {
		return nil, &ParseError{Path: pdfPath, Reason: "no recognizable specification fields found"}
	}

	p.logger.Info("[parser] %s: extracted %d attributes from %d chars",
		modelKey, countAttrs(&specs), len(text))

	return &models.SpecDocument{
		ModelKey:   modelKey,
		SourcePDF:  pdfPath,
		Specs:      specs,
		TextLength: len(text),
		ParsedAt:   time.Now().UTC(),
	}, nil
}

func extractText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// extractSpecs runs every attribute's pattern set over the text and files
// cleaned, deduplicated matches under the attribute.
func (p *Parser) extractSpecs(text string) models.SpecMap {
	var specs models.SpecMap

	for _, attr := range models.RecognizedAttrs {
		var matches []string
		for _, re := range specPatterns[attr] {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				val := m[0]
				if len(m) > 1 && m[1] != "" {
					val = m[1]
				}
				matches = append(matches, val)
			}
		}

		cleaned := make([]string, 0, len(matches))
		for _, m := range matches {
			c := cleanMatch(m)
			if c == "" {
				continue
			}
			if !validSpec(attr, c) {
				continue
			}
			cleaned = append(cleaned, c)
		}

		unique := dedupeMatches(cleaned)
		if len(unique) > maxValuesPerAttr {
			unique = unique[:maxValuesPerAttr]
		}
		if len(unique) > 0 {
			specs.Set(attr, unique)
		}
	}

	p.extractOther(text, &specs)
	return specs
}

// attrAliases maps labels already covered by the recognized enumeration (or
// its common synonyms) so they never leak into the Other bucket.
var attrAliases = map[string]struct{}{
	"processor": {}, "memory": {}, "os": {}, "port": {},
	"screen": {}, "gpu": {}, "video": {},
}

// extractOther collects labeled fields outside the recognized enumeration.
func (p *Parser) extractOther(text string, specs *models.SpecMap) {
	recognized := make(map[string]struct{}, len(models.RecognizedAttrs))
	for _, attr := range models.RecognizedAttrs {
		recognized[attr] = struct{}{}
	}
	for alias := range attrAliases {
		recognized[alias] = struct{}{}
	}

	found := make(map[string][]string)
	for _, m := range otherLabelPattern.FindAllStringSubmatch(text, -1) {
		label := normalizeLabel(m[1])
		if label == "" {
			continue
		}
		if _, ok := recognized[label]; ok {
			continue
		}
		val := cleanMatch(m[2])
		if val == "" {
			continue
		}
		found[label] = append(found[label], val)
	}

	for label, vals := range found {
		unique := dedupeMatches(vals)
		if len(unique) > maxValuesPerAttr {
			unique = unique[:maxValuesPerAttr]
		}
		specs.Set(label, unique)
	}
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return s
}

func cleanMatch(s string) string {
	c := strings.TrimSpace(s)
	if len(c) <= 2 || len(c) >= maxValueLen {
		return ""
	}
	for _, prefix := range []string{"*", "•", "-", "(", "["} {
		if strings.HasPrefix(c, prefix) {
			return ""
		}
	}
	for _, suffix := range []string{":", "**", "*"} {
		if strings.HasSuffix(c, suffix) {
			return ""
		}
	}
	return c
}

// validSpec applies category-specific sanity checks so a stray regex match
// (a footnote, a marketing line) doesn't land in the spec map.
func validSpec(attr, text string) bool {
	lower := strings.ToLower(text)
	containsAny := func(terms ...string) bool {
		for _, t := range terms {
			if strings.Contains(lower, t) {
				return true
			}
		}
		return false
	}
	hasDigit := strings.ContainsAny(text, "0123456789")

	switch attr {
	case models.AttrCPU:
		return containsAny("intel", "amd", "processor", "core", "ryzen", "i3", "i5", "i7", "i9")
	case models.AttrRAM:
		return containsAny("gb", "memory", "ram", "ddr") &&
			(strings.ContainsAny(text, "48") || containsAny("16", "32", "64"))
	case models.AttrStorage:
		return containsAny("gb", "tb", "ssd", "nvme", "storage", "drive")
	case models.AttrDisplay:
		return containsAny("display", "screen", "resolution", "fhd", "hd", "1920", "1366", `"`, "inch")
	case models.AttrGraphics:
		return containsAny("graphics", "gpu", "intel", "amd", "nvidia", "integrated", "iris", "xe", "radeon")
	case models.AttrBattery:
		return containsAny("wh", "battery", "cell", "hour", "life")
	case models.AttrPorts:
		return containsAny("usb", "hdmi", "port", "thunderbolt", "ethernet", "audio", "jack")
	case models.AttrWeight:
		return containsAny("kg", "lb", "pound", "weight") && hasDigit
	case models.AttrDimensions:
		return (strings.Contains(lower, "x") || strings.Contains(text, "×")) && hasDigit
	case models.AttrOperatingSystem:
		return containsAny("windows", "linux", "ubuntu", "chrome", "mac", "dos")
	}
	return true
}

// dedupeMatches drops matches that share at least 80% of their words with an
// earlier match.
func dedupeMatches(matches []string) []string {
	var unique []string
	for _, m := range matches {
		isUnique := true
		mWords := wordSet(m)
		for _, existing := range unique {
			eWords := wordSet(existing)
			shared := 0
			for w := range mWords {
				if _, ok := eWords[w]; ok {
					shared++
				}
			}
			longest := len(mWords)
			if len(eWords) > longest {
				longest = len(eWords)
			}
			if longest > 0 && float64(shared)/float64(longest) > 0.8 {
				isUnique = false
				break
			}
		}
		if isUnique {
			unique = append(unique, m)
		}
	}
	return unique
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}

func countAttrs(m *models.SpecMap) int {
	n := 0
	for _, attr := range models.RecognizedAttrs {
		if len(m.Get(attr)) > 0 {
			n++
		}
	}
	return n + len(m.Other)
}
