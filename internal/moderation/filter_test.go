package moderation

import "testing"

func TestCheck_CleanTextPasses(t *testing.T) {
	f := NewFilter()
	for _, text := range []string{
		"hello there",
		"meet me at noon",
		"v2.0 is out, see the changelog",
		"OK",
		"LOL",
		"", // empty messages are the transport's problem, not spam
	} {
		if res := f.Check(text); res.Blocked {
			t.Errorf("Check(%q) blocked with reason %q, want clean", text, res.Reason)
		}
	}
}

func TestCheck_URLs(t *testing.T) {
	f := NewFilter()
	for _, text := range []string{
		"visit https://spam.example/buy",
		"http://foo.bar",
		"go to www.spam.example now",
		"Check THIS out HTTPS://SPAM.EXAMPLE",
	} {
		res := f.Check(text)
		if !res.Blocked || res.Reason != "url" {
			t.Errorf("Check(%q) = %+v, want blocked with reason url", text, res)
		}
	}
}

func TestCheck_CharFlood(t *testing.T) {
	f := NewFilter()
	res := f.Check("heyyyyyyyy")
	if !res.Blocked || res.Reason != "char_flood" {
		t.Errorf("Check = %+v, want blocked with reason char_flood", res)
	}
	if res := f.Check("heyyy"); res.Blocked {
		t.Errorf("short repeat should pass, got %+v", res)
	}
}

func TestCheck_WordFlood(t *testing.T) {
	f := NewFilter()
	res := f.Check("buy buy buy buy now")
	if !res.Blocked || res.Reason != "word_flood" {
		t.Errorf("Check = %+v, want blocked with reason word_flood", res)
	}
	if res := f.Check("no no worries"); res.Blocked {
		t.Errorf("two repeats should pass, got %+v", res)
	}
	// Case-insensitive.
	res = f.Check("Spam SPAM spam sPaM")
	if !res.Blocked || res.Reason != "word_flood" {
		t.Errorf("Check = %+v, want case-insensitive word_flood", res)
	}
}

func TestCheck_Shouting(t *testing.T) {
	f := NewFilter()
	res := f.Check("STOP IGNORING MY MESSAGES")
	if !res.Blocked || res.Reason != "shouting" {
		t.Errorf("Check = %+v, want blocked with reason shouting", res)
	}
	if res := f.Check("This Is A Normal Sentence"); res.Blocked {
		t.Errorf("mixed case should pass, got %+v", res)
	}
}
