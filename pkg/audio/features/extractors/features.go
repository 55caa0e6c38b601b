package extractors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"gopkg.in/yaml.v3"
)

// Feature keys in reporting order
const (
	KeyMFCC              = "MFCCs"
	KeySpectralCentroid  = "Spectral Centroid"
	KeySpectralBandwidth = "Spectral Bandwidth"
	KeySpectralRolloff   = "Spectral Rolloff"
	KeySpectralContrast  = "Spectral Contrast"
	KeyRMSEnergy         = "RMS Energy"
	KeyZeroCrossingRate  = "Zero Crossing Rate"
	KeyMeanPitch         = "WORLD Mean Pitch (F0)"
	KeyJitter            = "Jitter"
	KeyShimmer           = "Shimmer"
	KeyHNR               = "Harmonic-to-Noise Ratio (HNR)"
)

var featureKeys = []string{
	KeyMFCC,
	KeySpectralCentroid,
	KeySpectralBandwidth,
	KeySpectralRolloff,
	KeySpectralContrast,
	KeyRMSEnergy,
	KeyZeroCrossingRate,
	KeyMeanPitch,
	KeyJitter,
	KeyShimmer,
	KeyHNR,
}

// FeatureKeys returns every key of a FeatureSet in reporting order
func FeatureKeys() []string {
	return append([]string(nil), featureKeys...)
}

// FeatureSet holds the per-file summary descriptors.
// Every key is always present; a sub-feature that failed reports 0 and is listed in Failures.
// JSON and YAML encode exactly the eleven feature keys in reporting order.
type FeatureSet struct {
	MFCC              []float64 // mean of each coefficient
	SpectralCentroid  float64   // Hz
	SpectralBandwidth float64
	SpectralRolloff   float64
	SpectralContrast  float64 // dB

	// Per-band frame means of the contrast, lowest band first
	SpectralContrastBands []float64

	RMSEnergy        float64
	ZeroCrossingRate float64
	MeanPitch        float64 // Hz, 0 when unvoiced

	Jitter  float64
	Shimmer float64
	HNR     float64 // dB

	// Failures maps a feature key to the reason it reports 0
	Failures map[string]string

	errs []error
}

// Keys returns the keys of the set in reporting order
func (fs *FeatureSet) Keys() []string {
	return FeatureKeys()
}

func (fs *FeatureSet) scalars() map[string]*float64 {
	return map[string]*float64{
		KeySpectralCentroid:  &fs.SpectralCentroid,
		KeySpectralBandwidth: &fs.SpectralBandwidth,
		KeySpectralRolloff:   &fs.SpectralRolloff,
		KeySpectralContrast:  &fs.SpectralContrast,
		KeyRMSEnergy:         &fs.RMSEnergy,
		KeyZeroCrossingRate:  &fs.ZeroCrossingRate,
		KeyMeanPitch:         &fs.MeanPitch,
		KeyJitter:            &fs.Jitter,
		KeyShimmer:           &fs.Shimmer,
		KeyHNR:               &fs.HNR,
	}
}

// Map returns the set keyed by feature name. MFCCs maps to a []float64, every
// other key to a float64.
func (fs *FeatureSet) Map() map[string]any {
	m := map[string]any{KeyMFCC: append([]float64(nil), fs.MFCC...)}
	for key, v := range fs.scalars() {
		m[key] = *v
	}
	return m
}

// Scalar returns the value of a scalar key
func (fs *FeatureSet) Scalar(key string) (float64, bool) {
	v, ok := fs.scalars()[key]
	if !ok {
		return 0, false
	}
	return *v, true
}

// MarshalJSON encodes the feature keys in reporting order
func (fs *FeatureSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range featureKeys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fs.value(key))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a set encoded by MarshalJSON. Unknown keys are ignored.
func (fs *FeatureSet) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw[KeyMFCC]; ok {
		if err := json.Unmarshal(v, &fs.MFCC); err != nil {
			return fmt.Errorf("%s: %w", KeyMFCC, err)
		}
	}
	for key, dst := range fs.scalars() {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

// MarshalYAML encodes the feature keys in reporting order
func (fs *FeatureSet) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range featureKeys {
		value := &yaml.Node{}
		if err := value.Encode(fs.value(key)); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			value,
		)
	}
	return node, nil
}

// UnmarshalYAML reads a set encoded by MarshalYAML. Unknown keys are ignored.
func (fs *FeatureSet) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if v, ok := raw[KeyMFCC]; ok {
		if err := v.Decode(&fs.MFCC); err != nil {
			return fmt.Errorf("%s: %w", KeyMFCC, err)
		}
	}
	for key, dst := range fs.scalars() {
		if v, ok := raw[key]; ok {
			if err := v.Decode(dst); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

func (fs *FeatureSet) value(key string) any {
	if key == KeyMFCC {
		if fs.MFCC == nil {
			return []float64{}
		}
		return fs.MFCC
	}
	v, _ := fs.Scalar(key)
	return v
}

// Validate reports non-finite values and a missing MFCC vector
func (fs *FeatureSet) Validate() error {
	if len(fs.MFCC) == 0 {
		return fmt.Errorf("%s: empty coefficient vector", KeyMFCC)
	}

	var errs []error
	for i, v := range fs.MFCC {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s[%d]: non-finite value %g", KeyMFCC, i, v))
		}
	}
	for _, v := range fs.SpectralContrastBands {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s band: non-finite value %g", KeySpectralContrast, v))
		}
	}
	for _, key := range featureKeys[1:] {
		v, _ := fs.Scalar(key)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s: non-finite value %g", key, v))
		}
	}
	return errors.Join(errs...)
}

// Err joins the errors of every failed sub-feature, or returns nil
func (fs *FeatureSet) Err() error {
	return errors.Join(fs.errs...)
}

// FailedKeys returns the failed feature keys in reporting order
func (fs *FeatureSet) FailedKeys() []string {
	keys := make([]string, 0, len(fs.Failures))
	for k := range fs.Failures {
		keys = append(keys, k)
	}
	order := make(map[string]int, len(featureKeys))
	for i, k := range featureKeys {
		order[k] = i
	}
	sort.Slice(keys, func(i, j int) bool { return order[keys[i]] < order[keys[j]] })
	return keys
}

func (fs *FeatureSet) fail(key string, err error) {
	if fs.Failures == nil {
		fs.Failures = make(map[string]string)
	}
	fs.Failures[key] = err.Error()
	fs.errs = append(fs.errs, fmt.Errorf("%s: %w", key, err))
}
