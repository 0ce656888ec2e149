package attempts

import "testing"

func TestDecisionValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       Decision
		wantErr bool
	}{
		{
			name: "valid approval",
			d:    Decision{Verdict: VerdictApprove, Score: 88, Tags: []string{"style_match", "good_lighting"}},
		},
		{
			name: "valid rejection with note",
			d:    Decision{Verdict: VerdictReject, Score: 20, Tags: []string{"wrong_space"}, Note: "kitchen rendered as bathroom"},
		},
		{
			name:    "unknown verdict",
			d:       Decision{Verdict: Verdict("maybe"), Score: 50, Tags: []string{"style_match"}},
			wantErr: true,
		},
		{
			name:    "score above range",
			d:       Decision{Verdict: VerdictApprove, Score: 101, Tags: []string{"style_match"}},
			wantErr: true,
		},
		{
			name:    "score below range",
			d:       Decision{Verdict: VerdictApprove, Score: -1, Tags: []string{"style_match"}},
			wantErr: true,
		},
		{
			name:    "no tags",
			d:       Decision{Verdict: VerdictApprove, Score: 80},
			wantErr: true,
		},
		{
			name: "reject tag on approval",
			// The vocabularies are distinct: a rejection reason is not a
			// valid approval reason.
			d:       Decision{Verdict: VerdictApprove, Score: 80, Tags: []string{"distorted_geometry"}},
			wantErr: true,
		},
		{
			name:    "approve tag on rejection",
			d:       Decision{Verdict: VerdictReject, Score: 30, Tags: []string{"photorealistic"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTagsFor(t *testing.T) {
	if got := TagsFor(VerdictApprove); len(got) == 0 {
		t.Error("approve vocabulary is empty")
	}
	if got := TagsFor(VerdictReject); len(got) == 0 {
		t.Error("reject vocabulary is empty")
	}
	if got := TagsFor(Verdict("maybe")); got != nil {
		t.Errorf("unknown verdict vocabulary = %v, want nil", got)
	}

	// The two vocabularies must not overlap.
	for _, a := range ApproveTags {
		for _, r := range RejectTags {
			if a == r {
				t.Errorf("tag %q appears in both vocabularies", a)
			}
		}
	}
}
