package hosted

// Sentence delimiters of the hosted chat template.
const (
	beginOfSentence = "<｜begin▁of▁sentence｜>"
	endOfSentence   = "<｜end▁of▁sentence｜>"
	userTag         = "<｜User｜>"
	assistantTag    = "<｜Assistant｜>"
)

// Sampling bounds accepted by the serving container. The lower bounds are
// exclusive.
const (
	minTemperature = 0.01
	maxTemperature = 2.0
	minTopP        = 0.01
	maxTopP        = 0.99
)

// hostedRequest is the text-generation-inference body sent to an endpoint.
type hostedRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters hostedParameters `json:"parameters"`
	Stream     bool             `json:"stream"`
}

type hostedParameters struct {
	MaxNewTokens   int      `json:"max_new_tokens"`
	Temperature    *float64 `json:"temperature,omitempty"`
	TopP           *float64 `json:"top_p,omitempty"`
	DoSample       bool     `json:"do_sample"`
	ReturnFullText bool     `json:"return_full_text"`
}

// hostedChunk is one streamed token event. The final event also carries
// generated_text with the whole output, which must not be re-emitted.
type hostedChunk struct {
	Token *struct {
		ID      int     `json:"id"`
		Text    string  `json:"text"`
		LogProb float64 `json:"logprob"`
		Special bool    `json:"special"`
	} `json:"token,omitempty"`
	GeneratedText *string `json:"generated_text,omitempty"`
}

// hostedResponse is one element of a non-streamed response.
type hostedResponse struct {
	GeneratedText string `json:"generated_text"`
}
