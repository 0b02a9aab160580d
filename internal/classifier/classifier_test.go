package classifier

import (
	"reflect"
	"strings"
	"testing"
)

func TestClassifyImageRequest(t *testing.T) {
	det := Classify("Generate an image of a sunset in 16:9")

	if !reflect.DeepEqual(det.Capabilities, []Capability{CapImageGeneration}) {
		t.Fatalf("capabilities = %v, want [image-generation]", det.Capabilities)
	}
	if det.Confidence < 70 {
		t.Errorf("confidence = %d, want >= 70", det.Confidence)
	}
	if det.Params["aspect_ratio"] != "16:9" {
		t.Errorf("aspect_ratio = %q, want 16:9", det.Params["aspect_ratio"])
	}
}

func TestClassifyCompoundRequestKeepsDetectionOrder(t *testing.T) {
	det := Classify("Search for the latest AI trends and generate an image based on them")

	want := []Capability{CapWebSearch, CapImageGeneration}
	if !reflect.DeepEqual(det.Capabilities, want) {
		t.Fatalf("capabilities = %v, want %v", det.Capabilities, want)
	}
	if det.Scores[CapWebSearch] < det.Scores[CapImageGeneration] {
		t.Errorf("web-search should dominate: %v", det.Scores)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	input := "Search for benchmark results, analyze the data and write a report"
	first := Classify(input)
	for i := 0; i < 20; i++ {
		if got := Classify(input); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestClassifyParams(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		key   string
		want  string
	}{
		{"aspect ratio", "make a video in 4:3 please", "aspect_ratio", "4:3"},
		{"duration", "generate a video of 30 seconds about rain", "duration_seconds", "30"},
		{"count", "create an image, 3 images of cats", "count", "3"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			det := Classify(tc.input)
			if det.Params[tc.key] != tc.want {
				t.Errorf("%s = %q, want %q (params %v)", tc.key, det.Params[tc.key], tc.want, det.Params)
			}
		})
	}
}

func TestClassifyEmptyAndVagueInput(t *testing.T) {
	if det := Classify("   "); len(det.Capabilities) != 0 || det.Confidence != 0 {
		t.Errorf("blank input must detect nothing, got %+v", det)
	}
	if det := Classify("hello there"); len(det.Capabilities) != 0 {
		t.Errorf("vague input must detect nothing, got %v", det.Capabilities)
	}
}

func TestClassifySuggestedRoute(t *testing.T) {
	long := "Implement a service that lets a team of agents collaborate on our api: " +
		"write code for the scheduler, write a function for retries, and orchestrate " +
		"the whole workflow across multiple agents so the pipeline stays healthy." +
		strings.Repeat(" more context.", 5)
	det := Classify(long)

	if det.SuggestedRoute != CapMultiAgent {
		t.Errorf("expected suggested route multi-agent, got %q (scores %v)", det.SuggestedRoute, det.Scores)
	}
	// The escape hatch flags, it does not drop detections.
	if det.Scores[CapCodeGeneration] < 70 || det.Scores[CapMultiAgent] < 70 {
		t.Errorf("both high-confidence detections must survive: %v", det.Scores)
	}
}

func TestIndexWordBoundaries(t *testing.T) {
	if i := indexWord("restart the search", "art"); i >= 0 {
		t.Errorf("'art' must not match inside 'restart', got index %d", i)
	}
	if i := indexWord("modern art here", "art"); i < 0 {
		t.Error("'art' should match as a whole word")
	}
}
