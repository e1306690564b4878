package manifest

import "strings"

// DigitalSourceType is the IPTC digital source type recorded on a generative
// assertion, or "legacy" for pre-1.3 AI disclosures.
type DigitalSourceType string

const (
	SourceLegacy                               DigitalSourceType = "legacy"
	SourceTrainedAlgorithmicMedia              DigitalSourceType = "trainedAlgorithmicMedia"
	SourceCompositeWithTrainedAlgorithmicMedia DigitalSourceType = "compositeWithTrainedAlgorithmicMedia"
)

var iptcPrefixes = []string{
	"http://cv.iptc.org/newscodes/digitalsourcetype/",
	"https://cv.iptc.org/newscodes/digitalsourcetype/",
}

// Normalize strips the IPTC vocabulary URI prefix, if any.
func (t DigitalSourceType) Normalize() DigitalSourceType {
	s := strings.TrimSpace(string(t))
	for _, p := range iptcPrefixes {
		if strings.HasPrefix(s, p) {
			return DigitalSourceType(strings.TrimPrefix(s, p))
		}
	}
	return DigitalSourceType(s)
}

// GenerativeType is the content summary classification of an asset.
type GenerativeType string

const (
	GenerativeLegacy    GenerativeType = "legacy"
	GenerativeComposite GenerativeType = "compositeGenerative"
	GenerativeAI        GenerativeType = "aiGenerated"
)

// TypeClassifier derives a content summary type from generative assertions.
// ok is false when no type applies.
type TypeClassifier interface {
	ClassifyType(info []GenerativeAssertion) (t GenerativeType, ok bool, err error)
}

// AgentClassifier lists the AI tools involved in producing an asset.
type AgentClassifier interface {
	ClassifyAgents(info []GenerativeAssertion) ([]string, error)
}

type TypeClassifierFunc func([]GenerativeAssertion) (GenerativeType, bool, error)

func (f TypeClassifierFunc) ClassifyType(info []GenerativeAssertion) (GenerativeType, bool, error) {
	return f(info)
}

type AgentClassifierFunc func([]GenerativeAssertion) ([]string, error)

func (f AgentClassifierFunc) ClassifyAgents(info []GenerativeAssertion) ([]string, error) {
	return f(info)
}

// DefaultTypeClassifier picks the strongest signal across all assertions:
// legacy, then composite, then fully generated. Unrecognised source types are
// ignored.
var DefaultTypeClassifier TypeClassifier = TypeClassifierFunc(SelectGenerativeType)

// DefaultAgentClassifier returns distinct software agent names.
var DefaultAgentClassifier AgentClassifier = AgentClassifierFunc(SelectGenerativeSoftwareAgents)

var generativeRank = map[GenerativeType]int{
	GenerativeAI:        1,
	GenerativeComposite: 2,
	GenerativeLegacy:    3,
}

// SelectGenerativeType is the default TypeClassifier. It never fails.
func SelectGenerativeType(info []GenerativeAssertion) (GenerativeType, bool, error) {
	var best GenerativeType
	for _, a := range info {
		var t GenerativeType
		switch a.Type.Normalize() {
		case SourceLegacy:
			t = GenerativeLegacy
		case SourceCompositeWithTrainedAlgorithmicMedia:
			t = GenerativeComposite
		case SourceTrainedAlgorithmicMedia:
			t = GenerativeAI
		default:
			continue
		}
		if generativeRank[t] > generativeRank[best] {
			best = t
		}
	}
	return best, best != "", nil
}

// SelectGenerativeSoftwareAgents is the default AgentClassifier: distinct,
// non-empty agent names in first-seen order. It never fails.
func SelectGenerativeSoftwareAgents(info []GenerativeAssertion) ([]string, error) {
	var out []string
	seen := make(map[string]bool, len(info))
	for _, a := range info {
		name := strings.TrimSpace(a.SoftwareAgent.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}
