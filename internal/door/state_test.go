package door

import (
	"encoding/json"
	"math"
	"net/http"
	"testing"
)

func TestClassify_Intervals(t *testing.T) {
	tests := []struct {
		name string
		lo   float64
		hi   float64
		want State
	}{
		{"open", 0, 10, StateOpen},
		{"moving low", 11, 85, StateMoving},
		{"closed", 85, 105, StateClosed},
		{"moving high", 105, 180, StateMoving},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Walk the open interval, staying clear of both edges.
			for roll := tt.lo + 0.01; roll < tt.hi; roll += 0.25 {
				if got := Classify(roll); got != tt.want {
					t.Fatalf("Classify(%v) = %v, want %v", roll, got, tt.want)
				}
			}
			if got := Classify(math.Nextafter(tt.lo, tt.hi)); got != tt.want {
				t.Errorf("Classify(just above %v) = %v, want %v", tt.lo, got, tt.want)
			}
			if got := Classify(math.Nextafter(tt.hi, tt.lo)); got != tt.want {
				t.Errorf("Classify(just below %v) = %v, want %v", tt.hi, got, tt.want)
			}
		})
	}
}

func TestClassify_Gaps(t *testing.T) {
	rolls := []float64{
		0, 10, 10.5, 11, 85, 105, 180, 181, 360,
		-0.0001, -1, -45,
		math.NaN(), math.Inf(1), math.Inf(-1),
	}

	for _, roll := range rolls {
		if got := Classify(roll); got != StateIOFailure {
			t.Errorf("Classify(%v) = %v, want io_failure", roll, got)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	for roll := -5.0; roll < 185; roll += 0.5 {
		first := Classify(roll)
		for i := 0; i < 3; i++ {
			if got := Classify(roll); got != first {
				t.Fatalf("Classify(%v) = %v on repeat, first %v", roll, got, first)
			}
		}
	}
}

func TestState_Responses(t *testing.T) {
	tests := []struct {
		state      State
		wantBody   string
		wantStatus int
		wantName   string
	}{
		{StateOpen, "Open\n", http.StatusOK, "open"},
		{StateMoving, "Moving ...\n", http.StatusOK, "moving"},
		{StateClosed, "Closed\n", http.StatusOK, "closed"},
		{StateIOFailure, "I/O Failure\n", http.StatusInternalServerError, "io_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			if got := tt.state.Body(); got != tt.wantBody {
				t.Errorf("Body() = %q, want %q", got, tt.wantBody)
			}
			if got := tt.state.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
			if got := tt.state.String(); got != tt.wantName {
				t.Errorf("String() = %q, want %q", got, tt.wantName)
			}
			parsed, err := ParseState(tt.wantName)
			if err != nil || parsed != tt.state {
				t.Errorf("ParseState(%q) = %v, %v", tt.wantName, parsed, err)
			}
		})
	}
}

func TestState_CodesAreStable(t *testing.T) {
	if StateIOFailure != -1 || StateOpen != 0 || StateMoving != 1 || StateClosed != 2 {
		t.Error("state codes changed; telemetry depends on -1/0/1/2")
	}
}

func TestState_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]State{"state": StateClosed})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"state":"closed"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var decoded struct {
		State State `json:"state"`
	}
	if err := json.Unmarshal([]byte(`{"state":"bogus"}`), &decoded); err == nil {
		t.Error("Unmarshal() expected error for unknown state")
	}
}

func TestParseState_Unknown(t *testing.T) {
	if _, err := ParseState("ajar"); err == nil {
		t.Error("ParseState() expected error for unknown name")
	}
	if got := State(7).String(); got != "unknown(7)" {
		t.Errorf("String() = %q, want unknown(7)", got)
	}
}
