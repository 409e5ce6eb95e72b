package generation

import "testing"

func TestToSnapshot(t *testing.T) {
	valid := generatedQuestion{
		Prompt:       "Which channel reports a phishing mail?",
		Choices:      []string{"Reply to sender", "Security team", "Team chat", "Nobody"},
		CorrectIndex: 1,
	}

	tests := []struct {
		name      string
		questions []generatedQuestion
		want      int
		wantLen   int
		wantErr   bool
	}{
		{name: "valid set", questions: []generatedQuestion{valid, valid}, want: 2, wantLen: 2},
		{name: "overshoot is trimmed", questions: []generatedQuestion{valid, valid, valid}, want: 2, wantLen: 2},
		{name: "empty set", questions: nil, want: 2, wantErr: true},
		{
			name:      "empty prompt",
			questions: []generatedQuestion{{Prompt: "  ", Choices: []string{"A", "B"}, CorrectIndex: 0}},
			want:      1,
			wantErr:   true,
		},
		{
			name:      "single choice",
			questions: []generatedQuestion{{Prompt: "Q", Choices: []string{"A"}, CorrectIndex: 0}},
			want:      1,
			wantErr:   true,
		},
		{
			name:      "correct index out of range",
			questions: []generatedQuestion{{Prompt: "Q", Choices: []string{"A", "B"}, CorrectIndex: 2}},
			want:      1,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot, err := toSnapshot(tt.questions, tt.want)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("toSnapshot failed: %v", err)
			}
			if len(snapshot) != tt.wantLen {
				t.Fatalf("snapshot length = %d, want %d", len(snapshot), tt.wantLen)
			}
			for i, q := range snapshot {
				if q.QuestionID == "" {
					t.Errorf("question %d missing id", i)
				}
				if q.Order != i+1 {
					t.Errorf("question %d Order = %d, want %d", i, q.Order, i+1)
				}
			}
		})
	}
}
