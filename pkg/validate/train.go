package validate

import (
	"github.com/mitchellh/mapstructure"

	"github.com/matzehuels/neuralviz/pkg/dsl"
)

// TrainingConfig is the decoded form of a network's train block. Zero
// fields were not set.
type TrainingConfig struct {
	Epochs          int     `mapstructure:"epochs" json:"epochs,omitempty"`
	BatchSize       int     `mapstructure:"batch_size" json:"batch_size,omitempty"`
	LearningRate    float64 `mapstructure:"learning_rate" json:"learning_rate,omitempty"`
	ValidationSplit float64 `mapstructure:"validation_split" json:"validation_split,omitempty"`
	SearchMethod    string  `mapstructure:"search_method" json:"search_method,omitempty"`
}

// trainingTypes describes the expected value of each option for messages.
var trainingTypes = map[string]string{
	"epochs":           "a positive integer",
	"batch_size":       "a positive integer",
	"learning_rate":    "a positive number",
	"validation_split": "a number between 0 and 1",
	"search_method":    "a name such as \"grid\"",
}

// decodeTraining decodes the train block one entry at a time so that each
// problem is reported at the offending value. It returns nil when the
// network has no train block.
func decodeTraining(cfg map[string]dsl.Value, rep *reporter) *TrainingConfig {
	if cfg == nil {
		return nil
	}
	tc := &TrainingConfig{}
	for _, key := range sortedKeys(cfg) {
		v := cfg[key]
		want, known := trainingTypes[key]
		if !known {
			rep.warn(v.Pos, "unknown-training-option", "unknown training option %q is ignored", key)
			continue
		}
		// mapstructure truncates floats into int fields.
		if key == "epochs" || key == "batch_size" {
			if _, ok := v.Int(); !ok {
				rep.warn(v.Pos, "bad-training-option", "train.%s must be %s, found %s", key, want, v)
				continue
			}
		}

		var md mapstructure.Metadata
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:   tc,
			Metadata: &md,
		})
		if err != nil {
			rep.warn(v.Pos, "bad-training-option", "train.%s: %v", key, err)
			continue
		}
		if err := dec.Decode(map[string]any{key: v.Native()}); err != nil {
			rep.warn(v.Pos, "bad-training-option", "train.%s must be %s, found %s", key, want, v)
			continue
		}
		if len(md.Unused) > 0 {
			rep.warn(v.Pos, "unknown-training-option", "unknown training option %q is ignored", key)
		}
	}
	checkTraining(cfg, tc, rep)
	return tc
}

func checkTraining(cfg map[string]dsl.Value, tc *TrainingConfig, rep *reporter) {
	bad := func(key string) {
		rep.warn(cfg[key].Pos, "bad-training-option", "train.%s must be %s, found %s", key, trainingTypes[key], cfg[key])
	}
	if _, ok := cfg["epochs"]; ok && tc.Epochs <= 0 {
		if _, isInt := cfg["epochs"].Int(); isInt {
			bad("epochs")
		}
	}
	if _, ok := cfg["batch_size"]; ok && tc.BatchSize <= 0 {
		if _, isInt := cfg["batch_size"].Int(); isInt {
			bad("batch_size")
		}
	}
	if v, ok := cfg["learning_rate"]; ok && tc.LearningRate <= 0 {
		if _, isNum := v.Float(); isNum {
			bad("learning_rate")
		}
	}
	if v, ok := cfg["validation_split"]; ok && (tc.ValidationSplit < 0 || tc.ValidationSplit >= 1) {
		if _, isNum := v.Float(); isNum {
			bad("validation_split")
		}
	}
}
