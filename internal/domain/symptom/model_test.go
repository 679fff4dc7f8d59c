package symptom

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestImageList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ImageList
	}{
		{"array", `["a.png", " b.png ", ""]`, ImageList{"a.png", "b.png"}},
		{"json string", `"[\"a.png\",\"b.png\"]"`, ImageList{"a.png", "b.png"}},
		{"comma separated", `"a.png, b.png,,"`, ImageList{"a.png", "b.png"}},
		{"empty string", `""`, ImageList{}},
		{"null", `null`, ImageList{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ImageList
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestImageList_MarshalNil(t *testing.T) {
	b, err := json.Marshal(struct {
		Images ImageList `json:"images"`
	}{})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"images":[]}` {
		t.Errorf("got %s", b)
	}
}
