package cron

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeRunner records tool calls and answers with a fixed result.
type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	out   string
	err   error
	seen  []map[string]any
}

func (f *fakeRunner) Execute(_ context.Context, name string, params map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	f.seen = append(f.seen, params)
	return f.out, f.err
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestService(t *testing.T, r Runner) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.json")
	return NewService(path, r), path
}

// startService runs Start in the background and returns its cancel func.
func startService(t *testing.T, s *Service) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = s.Start(ctx) }()
	time.Sleep(20 * time.Millisecond)
	return cancel
}

func priceSpec(kind string) JobSpec {
	return JobSpec{
		Name: "price",
		Tool: "solana_price",
		Args: map[string]any{"address": "So11111111111111111111111111111111111111112"},
		Kind: kind,
	}
}

// ─── AddJob ────────────────────────────────────────────────────────────────

func TestAddJob_Every(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{})
	spec := priceSpec("every")
	spec.EveryMs = 5000
	job, err := s.AddJob(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected non-empty id")
	}
	if job.Payload.Kind != PayloadToolCall || job.Payload.Tool != "solana_price" {
		t.Errorf("unexpected payload: %+v", job.Payload)
	}
	jobs := s.ListJobs(false)
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Schedule.EveryMs == nil || *jobs[0].Schedule.EveryMs != 5000 {
		t.Errorf("unexpected everyMs: %v", jobs[0].Schedule.EveryMs)
	}
}

func TestAddJob_CronWithTZ(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{})
	spec := priceSpec("cron")
	spec.Expr = "0 9 * * *"
	spec.TZ = "UTC"
	job, err := s.AddJob(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Schedule.TZ == nil || *job.Schedule.TZ != "UTC" {
		t.Errorf("unexpected tz: %v", job.Schedule.TZ)
	}
	if job.State.NextRunAtMs == nil {
		t.Error("expected next run to be computed")
	}
}

func TestAddJob_Validation(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{})

	cases := map[string]JobSpec{
		"unknown kind": {Tool: "rugcheck", Kind: "weekly"},
		"no tool":      {Kind: "every", EveryMs: 1000},
		"zero every":   {Tool: "rugcheck", Kind: "every"},
		"bad cron":     {Tool: "rugcheck", Kind: "cron", Expr: "not a cron"},
		"bad tz":       {Tool: "rugcheck", Kind: "cron", Expr: "0 9 * * *", TZ: "Mars/Olympus"},
	}
	for name, spec := range cases {
		if _, err := s.AddJob(spec); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if n := len(s.ListJobs(true)); n != 0 {
		t.Errorf("expected no jobs stored, got %d", n)
	}
}

func TestAddJob_DefaultName(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{})
	spec := priceSpec("every")
	spec.Name = ""
	spec.EveryMs = 1000
	job, _ := s.AddJob(spec)
	if job.Name != "solana_price" {
		t.Errorf("expected tool name as job name, got %q", job.Name)
	}
}

// ─── RemoveJob / EnableJob ─────────────────────────────────────────────────

func TestRemoveJob(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{})
	spec := priceSpec("every")
	spec.EveryMs = 1000
	job, _ := s.AddJob(spec)

	if !s.RemoveJob(job.ID) {
		t.Fatal("expected RemoveJob to return true")
	}
	if s.RemoveJob(job.ID) {
		t.Fatal("expected second RemoveJob to return false")
	}
	if len(s.ListJobs(true)) != 0 {
		t.Error("expected empty job list after remove")
	}
}

func TestEnableJob_ToggleDisableEnable(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{})
	spec := priceSpec("every")
	spec.EveryMs = 1000
	added, _ := s.AddJob(spec)

	job, ok := s.EnableJob(added.ID, false)
	if !ok || job.Enabled {
		t.Fatalf("expected disabled job, got ok=%v enabled=%v", ok, job.Enabled)
	}
	if job.State.NextRunAtMs != nil {
		t.Error("expected nil NextRunAtMs when disabled")
	}
	if len(s.ListJobs(false)) != 0 || len(s.ListJobs(true)) != 1 {
		t.Error("disabled job should only be listed with includeDisabled")
	}

	job, ok = s.EnableJob(added.ID, true)
	if !ok || !job.Enabled || job.State.NextRunAtMs == nil {
		t.Errorf("expected re-enabled job with next run, got %+v", job)
	}

	if _, ok := s.EnableJob("ghost", true); ok {
		t.Error("expected ok=false for unknown id")
	}
}

func TestListJobs_SortedByNextRun(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{})
	slow, fast := priceSpec("every"), priceSpec("every")
	slow.Name, slow.EveryMs = "slow", 60000
	fast.Name, fast.EveryMs = "fast", 1000
	_, _ = s.AddJob(slow)
	_, _ = s.AddJob(fast)

	jobs := s.ListJobs(false)
	if len(jobs) != 2 || jobs[0].Name != "fast" {
		t.Fatalf("jobs not sorted by next run: %+v", jobs)
	}
}

// ─── Persistence ───────────────────────────────────────────────────────────

func TestPersistence_RoundTrip(t *testing.T) {
	s, path := newTestService(t, &fakeRunner{})
	spec := priceSpec("every")
	spec.EveryMs = 5000
	job, _ := s.AddJob(spec)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read jobs.json: %v", err)
	}
	var st store
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.Version != 1 {
		t.Errorf("unexpected version: %d", st.Version)
	}
	if len(st.Jobs) != 1 || st.Jobs[0].ID != job.ID {
		t.Fatalf("unexpected persisted jobs: %+v", st.Jobs)
	}
	if st.Jobs[0].Payload.Args["address"] != spec.Args["address"] {
		t.Errorf("args not persisted: %v", st.Jobs[0].Payload.Args)
	}

	reloaded := NewService(path, nil)
	if got := reloaded.ListJobs(false); len(got) != 1 || got[0].Payload.Tool != "solana_price" {
		t.Errorf("unexpected reloaded jobs: %+v", got)
	}
}

func TestPersistence_LoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")
	existing := `{"version":1,"jobs":[{"id":"aabbccdd","name":"loaded","enabled":true,
		"schedule":{"kind":"every","everyMs":3000},"payload":{"kind":"tool_call","tool":"rugcheck","args":{"mint":"M"}},
		"state":{},"createdAtMs":1000,"updatedAtMs":1000,"deleteAfterRun":false}]}`
	if err := os.WriteFile(path, []byte(existing), 0o600); err != nil {
		t.Fatal(err)
	}

	jobs := NewService(path, nil).ListJobs(false)
	if len(jobs) != 1 || jobs[0].Name != "loaded" {
		t.Fatalf("unexpected loaded jobs: %+v", jobs)
	}
}

// ─── computeNextRun ────────────────────────────────────────────────────────

func TestComputeNextRun(t *testing.T) {
	now := time.Now().UnixMilli()
	every := int64(5000)
	zero := int64(0)
	future := now + 3_600_000
	past := now - 3_600_000
	expr := "0 12 * * *"
	bad := "not a cron"
	utc := "UTC"

	if r := computeNextRun(Schedule{Kind: "every", EveryMs: &every}, now); r == nil || *r != now+every {
		t.Errorf("every: got %v", r)
	}
	if r := computeNextRun(Schedule{Kind: "every", EveryMs: &zero}, now); r != nil {
		t.Error("every: expected nil for zero interval")
	}
	if r := computeNextRun(Schedule{Kind: "at", AtMs: &future}, now); r == nil || *r != future {
		t.Errorf("at future: got %v", r)
	}
	if r := computeNextRun(Schedule{Kind: "at", AtMs: &past}, now); r != nil {
		t.Error("at past: expected nil")
	}
	if r := computeNextRun(Schedule{Kind: "cron", Expr: &expr, TZ: &utc}, now); r == nil || *r <= now {
		t.Errorf("cron: expected future run, got %v", r)
	}
	if r := computeNextRun(Schedule{Kind: "cron", Expr: &bad}, now); r != nil {
		t.Error("cron: expected nil for invalid expression")
	}
}

// ─── Job execution ─────────────────────────────────────────────────────────

func TestRunJob_RecordsResult(t *testing.T) {
	r := &fakeRunner{out: `{"status":"success","result":"Current price: 150"}`}
	s, _ := newTestService(t, r)
	spec := priceSpec("every")
	spec.EveryMs = 60000
	added, _ := s.AddJob(spec)

	job, ok := s.RunJob(context.Background(), added.ID, false)
	if !ok {
		t.Fatal("RunJob returned false")
	}
	if r.count() != 1 || r.calls[0] != "solana_price" {
		t.Fatalf("unexpected calls: %v", r.calls)
	}
	if r.seen[0]["address"] != spec.Args["address"] {
		t.Errorf("args not passed through: %v", r.seen[0])
	}
	if job.State.LastStatus == nil || *job.State.LastStatus != "ok" {
		t.Errorf("unexpected status: %v", job.State.LastStatus)
	}
	if job.State.LastResult == nil || !strings.Contains(*job.State.LastResult, "150") {
		t.Errorf("unexpected result: %v", job.State.LastResult)
	}
	if job.State.LastRunAtMs == nil {
		t.Error("expected LastRunAtMs to be set")
	}
}

func TestRunJob_ErrorStatuses(t *testing.T) {
	cases := map[string]*fakeRunner{
		"status error":  {out: `{"status":"error","message":"nope"}`},
		"success false": {out: `{"success":false,"error":"nope"}`},
		"go error":      {err: errors.New("unknown tool")},
	}
	for name, r := range cases {
		s, _ := newTestService(t, r)
		spec := priceSpec("every")
		spec.EveryMs = 60000
		added, _ := s.AddJob(spec)
		job, _ := s.RunJob(context.Background(), added.ID, true)
		if job.State.LastStatus == nil || *job.State.LastStatus != "error" {
			t.Errorf("%s: expected error status, got %v", name, job.State.LastStatus)
		}
	}
}

func TestRunJob_TruncatesResult(t *testing.T) {
	r := &fakeRunner{out: strings.Repeat("x", MaxResultLen+500)}
	s, _ := newTestService(t, r)
	spec := priceSpec("every")
	spec.EveryMs = 60000
	added, _ := s.AddJob(spec)

	job, _ := s.RunJob(context.Background(), added.ID, true)
	if got := len([]rune(*job.State.LastResult)); got != MaxResultLen+1 {
		t.Errorf("expected truncated result of %d runes, got %d", MaxResultLen+1, got)
	}
}

func TestRunJob_DisabledWithoutForce(t *testing.T) {
	r := &fakeRunner{out: `{}`}
	s, _ := newTestService(t, r)
	spec := priceSpec("every")
	spec.EveryMs = 60000
	added, _ := s.AddJob(spec)
	s.EnableJob(added.ID, false)

	if _, ok := s.RunJob(context.Background(), added.ID, false); ok {
		t.Fatal("expected disabled job not to run without force")
	}
	if _, ok := s.RunJob(context.Background(), added.ID, true); !ok {
		t.Fatal("expected forced run")
	}
	if r.count() != 1 {
		t.Errorf("expected 1 call, got %d", r.count())
	}
}

func TestRunJob_AtDeleteAfterRun(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{out: `{}`})
	spec := priceSpec("at")
	spec.AtMs = time.Now().Add(time.Hour).UnixMilli()
	spec.DeleteAfterRun = true
	added, _ := s.AddJob(spec)

	s.RunJob(context.Background(), added.ID, true)
	if n := len(s.ListJobs(true)); n != 0 {
		t.Errorf("expected job deleted after run, got %d jobs", n)
	}
}

func TestRunJob_AtDisablesAfterRun(t *testing.T) {
	s, _ := newTestService(t, &fakeRunner{out: `{}`})
	spec := priceSpec("at")
	spec.AtMs = time.Now().Add(time.Hour).UnixMilli()
	added, _ := s.AddJob(spec)

	job, _ := s.RunJob(context.Background(), added.ID, true)
	if job.Enabled || job.State.NextRunAtMs != nil {
		t.Errorf("expected one-shot job disabled after run: %+v", job)
	}
}

func TestStart_FiresEveryJob(t *testing.T) {
	r := &fakeRunner{out: `{"status":"success"}`}
	s, _ := newTestService(t, r)
	cancel := startService(t, s)
	defer cancel()

	spec := priceSpec("every")
	spec.EveryMs = 30
	if _, err := s.AddJob(spec); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && r.count() < 2 {
		time.Sleep(10 * time.Millisecond)
	}
	if r.count() < 2 {
		t.Errorf("expected the job to fire repeatedly, got %d calls", r.count())
	}
}
