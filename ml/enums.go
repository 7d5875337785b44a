package ml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// enumTable maps the selectable labels of a categorical field to the integer
// codes the model was trained on.
type enumTable struct {
	field  string
	codes  []int
	labels []string
}

func (t enumTable) valid(code int) bool {
	for _, c := range t.codes {
		if c == code {
			return true
		}
	}
	return false
}

func (t enumTable) label(code int) string {
	for i, c := range t.codes {
		if c == code {
			return t.labels[i]
		}
	}
	return fmt.Sprintf("%s(%d)", t.field, code)
}

func (t enumTable) parse(s string) (int, error) {
	s = strings.TrimSpace(s)
	for i, l := range t.labels {
		if strings.EqualFold(l, s) {
			return t.codes[i], nil
		}
	}
	return 0, inputErr(t.field, "unknown option %q", s)
}

func (t enumTable) fromCode(code int) (int, error) {
	if !t.valid(code) {
		return 0, inputErr(t.field, "code %d out of range", code)
	}
	return code, nil
}

func (t enumTable) marshal(code int) ([]byte, error) {
	if !t.valid(code) {
		return nil, inputErr(t.field, "code %d out of range", code)
	}
	return json.Marshal(t.label(code))
}

// unmarshal accepts either the option label or its integer code.
func (t enumTable) unmarshal(data []byte) (int, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, inputErr(t.field, "%v", err)
		}
		return t.parse(s)
	}
	code, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, inputErr(t.field, "expected option label or integer code, got %s", data)
	}
	return t.fromCode(code)
}

func (t enumTable) options() []string {
	return append([]string(nil), t.labels...)
}

var (
	sexTable = enumTable{
		field:  "sex",
		codes:  []int{1, 0},
		labels: []string{"Male", "Female"},
	}
	chestPainTable = enumTable{
		field:  "cp",
		codes:  []int{0, 1, 2, 3},
		labels: []string{"Typical Angina", "Atypical Angina", "Non-anginal Pain", "Asymptomatic"},
	}
	restECGTable = enumTable{
		field:  "restecg",
		codes:  []int{0, 1, 2},
		labels: []string{"Normal", "ST-T Wave Abnormality", "Left Ventricular Hypertrophy"},
	}
	slopeTable = enumTable{
		field:  "slp",
		codes:  []int{0, 1, 2},
		labels: []string{"Upsloping", "Flat", "Downsloping"},
	}
	thalTable = enumTable{
		field:  "thall",
		codes:  []int{1, 2, 3},
		labels: []string{"Normal", "Fixed Defect", "Reversible Defect"},
	}
	sugarTable = enumTable{
		field:  "fbs",
		codes:  []int{1, 0},
		labels: []string{"Yes", "No"},
	}
	anginaTable = enumTable{
		field:  "exng",
		codes:  []int{1, 0},
		labels: []string{"Yes", "No"},
	}
)

type Sex int

const (
	Female Sex = 0
	Male   Sex = 1
)

func ParseSex(s string) (Sex, error) {
	code, err := sexTable.parse(s)
	return Sex(code), err
}

func SexFromCode(code int) (Sex, error) {
	c, err := sexTable.fromCode(code)
	return Sex(c), err
}

func (s Sex) Valid() bool                   { return sexTable.valid(int(s)) }
func (s Sex) String() string                { return sexTable.label(int(s)) }
func (s Sex) MarshalJSON() ([]byte, error)  { return sexTable.marshal(int(s)) }
func (s *Sex) UnmarshalJSON(b []byte) error { return decodeEnum(sexTable, b, (*int)(s)) }

type ChestPainType int

const (
	TypicalAngina ChestPainType = iota
	AtypicalAngina
	NonAnginalPain
	Asymptomatic
)

func ParseChestPainType(s string) (ChestPainType, error) {
	code, err := chestPainTable.parse(s)
	return ChestPainType(code), err
}

func ChestPainTypeFromCode(code int) (ChestPainType, error) {
	c, err := chestPainTable.fromCode(code)
	return ChestPainType(c), err
}

func (c ChestPainType) Valid() bool                   { return chestPainTable.valid(int(c)) }
func (c ChestPainType) String() string                { return chestPainTable.label(int(c)) }
func (c ChestPainType) MarshalJSON() ([]byte, error)  { return chestPainTable.marshal(int(c)) }
func (c *ChestPainType) UnmarshalJSON(b []byte) error { return decodeEnum(chestPainTable, b, (*int)(c)) }

type RestECG int

const (
	ECGNormal RestECG = iota
	ECGSTTAbnormality
	ECGLeftVentricularHypertrophy
)

func ParseRestECG(s string) (RestECG, error) {
	code, err := restECGTable.parse(s)
	return RestECG(code), err
}

func RestECGFromCode(code int) (RestECG, error) {
	c, err := restECGTable.fromCode(code)
	return RestECG(c), err
}

func (r RestECG) Valid() bool                   { return restECGTable.valid(int(r)) }
func (r RestECG) String() string                { return restECGTable.label(int(r)) }
func (r RestECG) MarshalJSON() ([]byte, error)  { return restECGTable.marshal(int(r)) }
func (r *RestECG) UnmarshalJSON(b []byte) error { return decodeEnum(restECGTable, b, (*int)(r)) }

// STSlope is the slope of the peak exercise ST segment.
type STSlope int

const (
	Upsloping STSlope = iota
	Flat
	Downsloping
)

func ParseSTSlope(s string) (STSlope, error) {
	code, err := slopeTable.parse(s)
	return STSlope(code), err
}

func STSlopeFromCode(code int) (STSlope, error) {
	c, err := slopeTable.fromCode(code)
	return STSlope(c), err
}

func (s STSlope) Valid() bool                   { return slopeTable.valid(int(s)) }
func (s STSlope) String() string                { return slopeTable.label(int(s)) }
func (s STSlope) MarshalJSON() ([]byte, error)  { return slopeTable.marshal(int(s)) }
func (s *STSlope) UnmarshalJSON(b []byte) error { return decodeEnum(slopeTable, b, (*int)(s)) }

// Thalassemia codes start at 1; zero is not a valid value.
type Thalassemia int

const (
	ThalNormal           Thalassemia = 1
	ThalFixedDefect      Thalassemia = 2
	ThalReversibleDefect Thalassemia = 3
)

func ParseThalassemia(s string) (Thalassemia, error) {
	code, err := thalTable.parse(s)
	return Thalassemia(code), err
}

func ThalassemiaFromCode(code int) (Thalassemia, error) {
	c, err := thalTable.fromCode(code)
	return Thalassemia(c), err
}

func (t Thalassemia) Valid() bool                   { return thalTable.valid(int(t)) }
func (t Thalassemia) String() string                { return thalTable.label(int(t)) }
func (t Thalassemia) MarshalJSON() ([]byte, error)  { return thalTable.marshal(int(t)) }
func (t *Thalassemia) UnmarshalJSON(b []byte) error { return decodeEnum(thalTable, b, (*int)(t)) }

// No and Yes are the codes of the yes/no columns.
const (
	No  = 0
	Yes = 1
)

// SugarFlag reports fasting blood sugar above 120 mg/dL.
type SugarFlag int

func ParseSugarFlag(s string) (SugarFlag, error) {
	code, err := sugarTable.parse(s)
	return SugarFlag(code), err
}

func SugarFlagFromCode(code int) (SugarFlag, error) {
	c, err := sugarTable.fromCode(code)
	return SugarFlag(c), err
}

func (f SugarFlag) Valid() bool                   { return sugarTable.valid(int(f)) }
func (f SugarFlag) String() string                { return sugarTable.label(int(f)) }
func (f SugarFlag) MarshalJSON() ([]byte, error)  { return sugarTable.marshal(int(f)) }
func (f *SugarFlag) UnmarshalJSON(b []byte) error { return decodeEnum(sugarTable, b, (*int)(f)) }

// AnginaFlag reports exercise induced angina.
type AnginaFlag int

func ParseAnginaFlag(s string) (AnginaFlag, error) {
	code, err := anginaTable.parse(s)
	return AnginaFlag(code), err
}

func AnginaFlagFromCode(code int) (AnginaFlag, error) {
	c, err := anginaTable.fromCode(code)
	return AnginaFlag(c), err
}

func (f AnginaFlag) Valid() bool                   { return anginaTable.valid(int(f)) }
func (f AnginaFlag) String() string                { return anginaTable.label(int(f)) }
func (f AnginaFlag) MarshalJSON() ([]byte, error)  { return anginaTable.marshal(int(f)) }
func (f *AnginaFlag) UnmarshalJSON(b []byte) error { return decodeEnum(anginaTable, b, (*int)(f)) }

func decodeEnum(t enumTable, data []byte, dst *int) error {
	code, err := t.unmarshal(data)
	if err != nil {
		return err
	}
	*dst = code
	return nil
}

var optionTables = map[string]enumTable{
	"sex":     sexTable,
	"cp":      chestPainTable,
	"fbs":     sugarTable,
	"restecg": restECGTable,
	"exng":    anginaTable,
	"slp":     slopeTable,
	"thall":   thalTable,
}

// FieldOptions returns the selectable labels of a categorical column in form
// order, or nil for numeric columns.
func FieldOptions(column string) []string {
	t, ok := optionTables[column]
	if !ok {
		return nil
	}
	return t.options()
}
