package cache

import (
	"testing"
	"time"

	"github.com/matomesearch/matome/internal/models"
)

func testResponse(query string) models.SearchResponse {
	return models.SearchResponse{
		SearchID: "test-" + query,
		Query:    query,
		Status:   models.StatusCompleted,
	}
}

func TestKeyOrderInsensitive(t *testing.T) {
	a := Key("q", []string{"duckduckgo", "wikipedia"}, []string{"en", "it"}, 5)
	b := Key("q", []string{"wikipedia", "duckduckgo"}, []string{"it", "en"}, 5)
	if a != b {
		t.Errorf("permuted lists produced different keys: %s vs %s", a, b)
	}
	c := Key("q", []string{"duckduckgo"}, []string{"en", "it"}, 5)
	if a == c {
		t.Error("different source sets produced the same key")
	}
	d := Key("q", []string{"duckduckgo", "wikipedia"}, []string{"en", "it"}, 6)
	if a == d {
		t.Error("different limits produced the same key")
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	c := New(time.Minute, 0)

	if _, ok := c.Get("q", []string{"a"}, []string{"en"}, 5); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Set("q", []string{"a", "b"}, []string{"en", "it"}, 5, testResponse("q"))

	got, ok := c.Get("q", []string{"b", "a"}, []string{"it", "en"}, 5)
	if !ok {
		t.Fatal("expected hit for permuted request identity")
	}
	if got.Query != "q" || got.SearchID != "test-q" {
		t.Errorf("got wrong payload: %+v", got)
	}
}

func TestTTLBoundary(t *testing.T) {
	current := time.Unix(1700000000, 0)
	c := New(time.Minute, 0)
	c.now = func() time.Time { return current }

	c.Set("q", []string{"a"}, []string{"en"}, 5, testResponse("q"))

	current = current.Add(time.Minute - time.Nanosecond)
	if _, ok := c.Get("q", []string{"a"}, []string{"en"}, 5); !ok {
		t.Fatal("expected hit just before TTL")
	}

	current = current.Add(time.Nanosecond)
	if _, ok := c.Get("q", []string{"a"}, []string{"en"}, 5); ok {
		t.Fatal("expected miss at exactly TTL")
	}
	if s := c.Stats(); s.Entries != 0 {
		t.Errorf("expired entry not evicted on read: %d entries", s.Entries)
	}
}

func TestCounters(t *testing.T) {
	c := New(time.Minute, 0)

	c.Get("q", []string{"a"}, []string{"en"}, 5)
	c.Set("q", []string{"a"}, []string{"en"}, 5, testResponse("q"))
	c.Get("q", []string{"a"}, []string{"en"}, 5)

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("counters: got hits=%d misses=%d", s.Hits, s.Misses)
	}
	if s.HitRate != "50.00%" {
		t.Errorf("hit_rate: got %q", s.HitRate)
	}
	if s.TTLSeconds != 60 {
		t.Errorf("ttl_seconds: got %v", s.TTLSeconds)
	}
}

func TestClearResetsDataAndCounters(t *testing.T) {
	c := New(time.Minute, 0)
	c.Set("q", []string{"a"}, []string{"en"}, 5, testResponse("q"))
	c.Get("q", []string{"a"}, []string{"en"}, 5)
	c.Get("other", []string{"a"}, []string{"en"}, 5)

	c.Clear()

	s := c.Stats()
	if s.Entries != 0 || s.Hits != 0 || s.Misses != 0 {
		t.Errorf("clear left state behind: %+v", s)
	}
	if _, ok := c.Get("q", []string{"a"}, []string{"en"}, 5); ok {
		t.Error("hit after clear")
	}
}

// Inserting past the threshold removes expired entries but never evicts live
// ones by size.
func TestSweepOnInsert(t *testing.T) {
	current := time.Unix(1700000000, 0)
	c := New(time.Minute, 3)
	c.now = func() time.Time { return current }

	c.Set("q1", []string{"a"}, []string{"en"}, 5, testResponse("q1"))
	c.Set("q2", []string{"a"}, []string{"en"}, 5, testResponse("q2"))
	c.Set("q3", []string{"a"}, []string{"en"}, 5, testResponse("q3"))

	current = current.Add(2 * time.Minute)
	c.Set("q4", []string{"a"}, []string{"en"}, 5, testResponse("q4"))

	s := c.Stats()
	if s.Entries != 1 {
		t.Errorf("expected sweep to leave 1 live entry, got %d", s.Entries)
	}
	if _, ok := c.Get("q4", []string{"a"}, []string{"en"}, 5); !ok {
		t.Error("live entry evicted by sweep")
	}
}

func TestSetTTLAppliesToExistingEntries(t *testing.T) {
	current := time.Unix(1700000000, 0)
	c := New(time.Hour, 0)
	c.now = func() time.Time { return current }

	c.Set("q", []string{"a"}, []string{"en"}, 5, testResponse("q"))

	current = current.Add(10 * time.Minute)
	c.SetTTL(time.Minute)
	if _, ok := c.Get("q", []string{"a"}, []string{"en"}, 5); ok {
		t.Fatal("entry should be expired under the shortened TTL")
	}

	c.SetTTL(0)
	if s := c.Stats(); s.TTLSeconds != DefaultTTL.Seconds() {
		t.Errorf("non-positive TTL must fall back to default, got %v", s.TTLSeconds)
	}
}

func TestSweepKeepsLiveEntriesPastThreshold(t *testing.T) {
	c := New(time.Minute, 2)

	c.Set("q1", []string{"a"}, []string{"en"}, 5, testResponse("q1"))
	c.Set("q2", []string{"a"}, []string{"en"}, 5, testResponse("q2"))
	c.Set("q3", []string{"a"}, []string{"en"}, 5, testResponse("q3"))

	if s := c.Stats(); s.Entries != 3 {
		t.Errorf("live entries must survive the sweep: got %d", s.Entries)
	}
}
