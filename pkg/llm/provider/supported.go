package provider

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/chatrelay/pkg/llm"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/amazon"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/completion"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/hosted"
	"github.com/papercomputeco/chatrelay/pkg/llm/provider/llama"
)

// Family is one of the closed set of backend wire formats.
type Family string

// Supported family constants
const (
	Anthropic  Family = "anthropic"
	Llama      Family = "llama"
	Amazon     Family = "amazon"
	Completion Family = "completion"
	Hosted     Family = "hosted"
)

// FamilyRule maps a case-insensitive substring of a model identifier to a family.
type FamilyRule struct {
	Pattern string
	Family  Family
}

// familyTable is evaluated top to bottom and the first match wins.
// Hosted endpoint markers come first: endpoint names are free-form and often
// embed another family's keyword ("llama-3-sagemaker-endpoint").
// Legacy text-completion Claude ids come before the generic Claude rule.
var familyTable = []FamilyRule{
	{Pattern: "sagemaker", Family: Hosted},
	{Pattern: "-endpoint", Family: Hosted},
	{Pattern: "jumpstart", Family: Hosted},

	{Pattern: "claude-v2", Family: Completion},
	{Pattern: "claude-instant", Family: Completion},
	{Pattern: "claude-2", Family: Completion},

	{Pattern: "anthropic.", Family: Anthropic},
	{Pattern: "claude", Family: Anthropic},

	{Pattern: "meta.", Family: Llama},
	{Pattern: "llama", Family: Llama},

	{Pattern: "amazon.", Family: Amazon},
	{Pattern: "titan", Family: Amazon},
	{Pattern: "nova", Family: Amazon},
}

// FamilyTable returns a copy of the ordered resolution table.
func FamilyTable() []FamilyRule {
	out := make([]FamilyRule, len(familyTable))
	copy(out, familyTable)
	return out
}

// SupportedFamilies returns the list of all supported family names.
func SupportedFamilies() []Family {
	return []Family{Anthropic, Llama, Amazon, Completion, Hosted}
}

// Resolve maps a model identifier to its family. It performs no I/O and
// returns *llm.UnsupportedModelError when no rule matches.
func Resolve(model string) (Family, error) {
	id := strings.ToLower(strings.TrimSpace(model))
	if id == "" {
		return "", &llm.UnsupportedModelError{Model: model}
	}

	for _, rule := range familyTable {
		if strings.Contains(id, rule.Pattern) {
			return rule.Family, nil
		}
	}

	return "", &llm.UnsupportedModelError{Model: model}
}

// New creates the Provider for the given family.
// Returns an error if the family is not recognized.
func New(family Family) (Provider, error) {
	switch family {
	case Anthropic:
		return anthropic.New(), nil
	case Llama:
		return llama.New(), nil
	case Amazon:
		return amazon.New(), nil
	case Completion:
		return completion.New(), nil
	case Hosted:
		return hosted.New(), nil
	default:
		return nil, fmt.Errorf("unknown model family: %q (supported: %v)", family, SupportedFamilies())
	}
}

// ForModel resolves the family of model and returns its Provider.
func ForModel(model string) (Family, Provider, error) {
	family, err := Resolve(model)
	if err != nil {
		return "", nil, err
	}

	prov, err := New(family)
	if err != nil {
		return "", nil, err
	}
	return family, prov, nil
}
