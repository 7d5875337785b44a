package ml

import (
	"math"
)

// FeatureRow is one patient's measurements. Field order and encoding match the
// columns of the training dataset.
type FeatureRow struct {
	Age               int           `json:"age"`
	Sex               Sex           `json:"sex"`
	ChestPain         ChestPainType `json:"cp"`
	RestingBP         int           `json:"trtbps"`
	Cholesterol       int           `json:"chol"`
	FastingBloodSugar SugarFlag     `json:"fbs"`
	RestECG           RestECG       `json:"restecg"`
	MaxHeartRate      int           `json:"thalachh"`
	ExerciseAngina    AnginaFlag    `json:"exng"`
	STDepression      float64       `json:"oldpeak"`
	STSlope           STSlope       `json:"slp"`
	Vessels           int           `json:"caa"`
	Thalassemia       Thalassemia   `json:"thall"`
}

var featureNames = []string{
	"age", "sex", "cp", "trtbps", "chol", "fbs", "restecg",
	"thalachh", "exng", "oldpeak", "slp", "caa", "thall",
}

// FeatureNames returns the dataset column names in FeatureRow order.
func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

// FieldRange is the accepted interval of a numeric form field.
type FieldRange struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

var fieldRanges = map[string]FieldRange{
	"age":      {Min: 1, Max: 120, Default: 30},
	"trtbps":   {Min: 80, Max: 200, Default: 120},
	"chol":     {Min: 100, Max: 400, Default: 200},
	"thalachh": {Min: 60, Max: 220, Default: 150},
	"oldpeak":  {Min: 0, Max: 6, Default: 1},
	"caa":      {Min: 0, Max: 3, Default: 0},
}

// FieldRangeOf reports the clamp interval of a numeric column.
func FieldRangeOf(column string) (FieldRange, bool) {
	r, ok := fieldRanges[column]
	return r, ok
}

// DefaultFeatureRow returns the values a fresh form starts with.
func DefaultFeatureRow() FeatureRow {
	return FeatureRow{
		Age:               30,
		Sex:               Male,
		ChestPain:         TypicalAngina,
		RestingBP:         120,
		Cholesterol:       200,
		FastingBloodSugar: Yes,
		RestECG:           ECGNormal,
		MaxHeartRate:      150,
		ExerciseAngina:    Yes,
		STDepression:      1.0,
		STSlope:           Upsloping,
		Vessels:           0,
		Thalassemia:       ThalNormal,
	}
}

// Clamp returns a copy with every numeric field forced into its form range.
func (r FeatureRow) Clamp() FeatureRow {
	r.Age = clampInt(r.Age, fieldRanges["age"])
	r.RestingBP = clampInt(r.RestingBP, fieldRanges["trtbps"])
	r.Cholesterol = clampInt(r.Cholesterol, fieldRanges["chol"])
	r.MaxHeartRate = clampInt(r.MaxHeartRate, fieldRanges["thalachh"])
	r.Vessels = clampInt(r.Vessels, fieldRanges["caa"])
	rg := fieldRanges["oldpeak"]
	if math.IsNaN(r.STDepression) {
		r.STDepression = rg.Min
	}
	r.STDepression = math.Min(math.Max(r.STDepression, rg.Min), rg.Max)
	return r
}

// Validate checks that every categorical field holds a known code.
func (r FeatureRow) Validate() error {
	switch {
	case !r.Sex.Valid():
		return inputErr("sex", "code %d out of range", int(r.Sex))
	case !r.ChestPain.Valid():
		return inputErr("cp", "code %d out of range", int(r.ChestPain))
	case !r.FastingBloodSugar.Valid():
		return inputErr("fbs", "code %d out of range", int(r.FastingBloodSugar))
	case !r.RestECG.Valid():
		return inputErr("restecg", "code %d out of range", int(r.RestECG))
	case !r.ExerciseAngina.Valid():
		return inputErr("exng", "code %d out of range", int(r.ExerciseAngina))
	case !r.STSlope.Valid():
		return inputErr("slp", "code %d out of range", int(r.STSlope))
	case !r.Thalassemia.Valid():
		return inputErr("thall", "code %d out of range", int(r.Thalassemia))
	}
	if math.IsNaN(r.STDepression) || math.IsInf(r.STDepression, 0) {
		return inputErr("oldpeak", "not a finite number")
	}
	return nil
}

// Vector encodes the row in FeatureNames order.
func (r FeatureRow) Vector() []float64 {
	return []float64{
		float64(r.Age),
		float64(r.Sex),
		float64(r.ChestPain),
		float64(r.RestingBP),
		float64(r.Cholesterol),
		float64(r.FastingBloodSugar),
		float64(r.RestECG),
		float64(r.MaxHeartRate),
		float64(r.ExerciseAngina),
		r.STDepression,
		float64(r.STSlope),
		float64(r.Vessels),
		float64(r.Thalassemia),
	}
}

func clampInt(v int, rg FieldRange) int {
	if v < int(rg.Min) {
		return int(rg.Min)
	}
	if v > int(rg.Max) {
		return int(rg.Max)
	}
	return v
}
