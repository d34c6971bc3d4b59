package config

import "path/filepath"

// Target describes one tracked laptop model: where its spec sheet lives and
// which retailer pages to collect live data from.
type Target struct {
	ModelKey   string
	Brand      string
	ModelName  string
	Seller     string
	PDF        string
	PDPURL     string
	ReviewURLs []string
	QnAURLs    []string
}

const (
	lenovoE14IntelPDP = "https://www.lenovo.com/us/en/p/laptops/thinkpad/thinkpade/thinkpad-e14-gen-5-14-inch-intel/21jk0053us"
	lenovoE14AMDPDP   = "https://www.lenovo.com/us/en/p/laptops/thinkpad/thinkpade/thinkpad-e14-gen-5-14-inch-amd/21jk0008us"

	hpProbook440PDP = "https://www.hp.com/us-en/shop/pdp/hp-probook-440-14-inch-g11-notebook-pc"
	hpProbook450PDP = "https://www.hp.com/us-en/shop/pdp/hp-probook-450-156-inch-g10-notebook-pc-wolf-pro-security-edition-p-8l0e0ua-aba-1"

	hpProbook440Reviews    = "https://www.hp.com/us-en/shop/reviews/hp-probook-440-14-inch-g11-notebook-pc"
	hpProbook440ReviewsSKU = "https://www.hp.com/us-en/shop/reviews/hp-probook-440-14-inch-g11-notebook-pc-p-a3rn0ua-aba-1"
	hpProbook450Reviews    = "https://www.hp.com/us-en/shop/reviews/hp-probook-450-156-inch-g10-notebook-pc-wolf-pro-security-edition-p-8l0e0ua-aba-1"
)

// Targets returns the static registry of tracked models. PDF paths are
// resolved relative to pdfDir.
func Targets(pdfDir string) []Target {
	return []Target{
		{
			ModelKey:  "lenovo_e14_intel",
			Brand:     "Lenovo",
			ModelName: "ThinkPad E14 Gen 5 (Intel)",
			Seller:    "Lenovo",
			PDF:       filepath.Join(pdfDir, "ThinkPad_E14_Gen_5_Intel_Spec.pdf"),
			PDPURL:    lenovoE14IntelPDP,
		},
		{
			ModelKey:  "lenovo_e14_amd",
			Brand:     "Lenovo",
			ModelName: "ThinkPad E14 Gen 5 (AMD)",
			Seller:    "Lenovo",
			PDF:       filepath.Join(pdfDir, "ThinkPad_E14_Gen_5_AMD_Spec.pdf"),
			PDPURL:    lenovoE14AMDPDP,
		},
		{
			ModelKey:   "hp_probook_440",
			Brand:      "HP",
			ModelName:  "ProBook 440 G11",
			Seller:     "HP",
			PDF:        filepath.Join(pdfDir, "hp-probook-440.pdf"),
			PDPURL:     hpProbook440PDP,
			ReviewURLs: []string{hpProbook440Reviews, hpProbook440ReviewsSKU},
			QnAURLs:    []string{hpProbook440Reviews, hpProbook440ReviewsSKU},
		},
		{
			ModelKey:   "hp_probook_450",
			Brand:      "HP",
			ModelName:  "ProBook 450 G10",
			Seller:     "HP",
			PDF:        filepath.Join(pdfDir, "hp-probook-450.pdf"),
			PDPURL:     hpProbook450PDP,
			ReviewURLs: []string{hpProbook450Reviews},
			QnAURLs:    []string{hpProbook450Reviews},
		},
	}
}

// TargetByKey looks up a target by its model key.
func TargetByKey(targets []Target, key string) (Target, bool) {
	for _, t := range targets {
		if t.ModelKey == key {
			return t, true
		}
	}
	return Target{}, false
}
