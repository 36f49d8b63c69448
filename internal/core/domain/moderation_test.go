package domain

import "testing"

func TestNGTableMatch(t *testing.T) {
	table := NGTable{
		Allow: []string{"核家族"},
		Rules: []NGRule{
			{Pattern: "核"},
			{Pattern: "対立候補", Reply: "他の候補者についてはコメントを差し控えます。"},
		},
	}

	cases := []struct {
		name      string
		text      string
		wantReply string
		wantHit   bool
	}{
		{"clean text", "教育政策を教えてください", "", false},
		{"pattern hit uses default reply", "核兵器についてどう思う？", DefaultRefusalMessage, true},
		{"rule with its own reply", "対立候補の政策は？", "他の候補者についてはコメントを差し控えます。", true},
		{"allow compound defeats the hit", "核家族の支援策はありますか", "", false},
		{"allow compound anywhere defeats the rule", "核家族と核武装について", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reply, hit := table.Match(tc.text)
			if hit != tc.wantHit {
				t.Fatalf("Match(%q) hit = %v, want %v", tc.text, hit, tc.wantHit)
			}
			if reply != tc.wantReply {
				t.Fatalf("Match(%q) reply = %q, want %q", tc.text, reply, tc.wantReply)
			}
		})
	}
}

func TestNGTableMatchCaseInsensitive(t *testing.T) {
	table := NGTable{Rules: []NGRule{{Pattern: "ng word"}}}
	if _, hit := table.Match("This contains an NG Word indeed"); !hit {
		t.Fatalf("expected a case-insensitive hit")
	}
}

func TestNGTableEmptyPatternNeverMatches(t *testing.T) {
	table := NGTable{Rules: []NGRule{{Pattern: ""}}}
	if _, hit := table.Match("anything"); hit {
		t.Fatalf("an empty pattern must not match")
	}
}
