package types

// EntropySummary holds the richer entropy fields spec.md §9 mandates over
// the simpler overall/window_size/windows form, which remains populated for
// backward compatibility as the spec's Open Question resolves it.
type EntropySummary struct {
	Overall    *float64  `json:"overall,omitempty"`
	WindowSize *int      `json:"window_size,omitempty"`
	Windows    []float64 `json:"windows,omitempty"`
	Mean       *float64  `json:"mean,omitempty"`
	StdDev     *float64  `json:"std_dev,omitempty"`
	Min        *float64  `json:"min,omitempty"`
	Max        *float64  `json:"max,omitempty"`
}

// EntropyClass is the classification band from spec.md §4.6.
type EntropyClass string

const (
	EntropyText       EntropyClass = "text"
	EntropyCode       EntropyClass = "code"
	EntropyCompressed EntropyClass = "compressed"
	EntropyEncrypted  EntropyClass = "encrypted"
	EntropyRandom     EntropyClass = "random"
)

// PackedIndicators summarizes packed-payload evidence (spec.md §3, §4.6).
type PackedIndicators struct {
	HasLowEntropyHeader bool     `json:"has_low_entropy_header"`
	HasHighEntropyBody  bool     `json:"has_high_entropy_body"`
	EntropyCliff        *int     `json:"entropy_cliff,omitempty"`
	Verdict             float64  `json:"verdict"`
}

// EntropyAnomaly flags a window-to-window entropy jump (spec.md §3).
type EntropyAnomaly struct {
	Index int     `json:"index"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Delta float64 `json:"delta"`
}

// EntropyAnalysis is the full entropy stage output (spec.md §3, §4.6).
type EntropyAnalysis struct {
	Summary         EntropySummary     `json:"summary"`
	Classification  EntropyClass       `json:"classification"`
	PackedIndicators PackedIndicators  `json:"packed_indicators"`
	Anomalies       []EntropyAnomaly   `json:"anomalies,omitempty"`
}

// StringEncoding names the encoding a StringSample was extracted as.
type StringEncoding string

const (
	EncodingASCII    StringEncoding = "ascii"
	EncodingUTF16LE  StringEncoding = "utf16le"
	EncodingUTF16BE  StringEncoding = "utf16be"
)

// StringSample is one sampled string (spec.md §3), bounded by caps.
type StringSample struct {
	Text       string         `json:"text"`
	Encoding   StringEncoding `json:"encoding"`
	Language   string         `json:"language,omitempty"`
	Script     string         `json:"script,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Offset     int64          `json:"offset"`
}

// StringsSummary is the bounded strings-scan output (spec.md §3, §4.5).
type StringsSummary struct {
	ASCIICount   int            `json:"ascii_count"`
	UTF16LECount int            `json:"utf16le_count"`
	UTF16BECount int            `json:"utf16be_count"`
	Samples      []StringSample `json:"samples,omitempty"`

	// DuplicateClusters counts samples collapsed by near-duplicate
	// clustering before the sample cap was applied (spec.md §4.5's sample
	// budget is meant to show distinct strings, not N copies of a packer's
	// repeated padding string).
	DuplicateClusters int `json:"duplicate_clusters,omitempty"`
}
