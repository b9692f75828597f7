package deeplink

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules are the merchant heuristics applied to a scanned link.
type Rules struct {
	// MerchantPrefixes match the start of the payee address.
	MerchantPrefixes []string `yaml:"prefixes"`
	// MerchantHandles match the end of the payee address.
	MerchantHandles []string `yaml:"handles"`
	// MerchantKeywords match anywhere in the decoded payee name.
	MerchantKeywords []string `yaml:"keywords"`
}

// DefaultRules returns the built-in merchant heuristics.
func DefaultRules() Rules {
	return Rules{
		MerchantPrefixes: []string{"paytmqr"},
		MerchantHandles:  []string{"@ptys", "@pty"},
		MerchantKeywords: []string{"mart", "stores", "merchant", "shop", "limited", "pvt", "llp"},
	}
}

type rulesFile struct {
	Merchant Rules `yaml:"merchant"`
}

// LoadRules returns the default rules overlaid with the YAML file at path.
// A list present in the file replaces the matching default list; an empty
// path yields the defaults.
//
//	merchant:
//	  prefixes: [paytmqr]
//	  handles: ["@ptys", "@pty"]
//	  keywords: [mart, stores]
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return rules, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	if len(f.Merchant.MerchantPrefixes) > 0 {
		rules.MerchantPrefixes = f.Merchant.MerchantPrefixes
	}
	if len(f.Merchant.MerchantHandles) > 0 {
		rules.MerchantHandles = f.Merchant.MerchantHandles
	}
	if len(f.Merchant.MerchantKeywords) > 0 {
		rules.MerchantKeywords = f.Merchant.MerchantKeywords
	}
	return rules, nil
}
