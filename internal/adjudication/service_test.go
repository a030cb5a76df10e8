package adjudication

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/claimdesk/internal/bus"
	"github.com/opensource-finance/claimdesk/internal/cache"
	"github.com/opensource-finance/claimdesk/internal/decision"
	"github.com/opensource-finance/claimdesk/internal/domain"
	"github.com/opensource-finance/claimdesk/internal/repository"
	"github.com/opensource-finance/claimdesk/internal/rules"
	"github.com/opensource-finance/claimdesk/internal/rulestore"
)

type stubAssessor struct {
	result domain.DamageAssessment
	err    error
	images []string
}

func (a *stubAssessor) Assess(ctx context.Context, claimID string, images []string) (domain.DamageAssessment, error) {
	a.images = images
	if a.err != nil {
		return domain.DamageAssessment{ClaimID: claimID, DamageLabels: []string{}, Severity: domain.SeverityUnknown}, a.err
	}
	return a.result, nil
}

type testEnv struct {
	svc  *Service
	repo *repository.SQLRepository
}

func newTestEnv(t *testing.T, assessor Assessor, eventBus domain.EventBus, opts Options) *testEnv {
	t.Helper()

	env := openTestEnv(t, filepath.Join(t.TempDir(), "adjudication-test.db"), assessor, eventBus, opts)
	env.seed(t)
	return env
}

// openTestEnv builds a service over the database at path with its own
// in-memory snapshot cache.
func openTestEnv(t *testing.T, path string, assessor Assessor, eventBus domain.EventBus, opts Options) *testEnv {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: path,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	clock := func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	processor := decision.NewProcessor(rules.NewFraudEvaluator(engine, clock))
	loader := rulestore.NewLoader(repo, cache.NewLRUCache(16), time.Minute)

	return &testEnv{
		svc:  NewService(repo, loader, processor, assessor, eventBus, opts),
		repo: repo,
	}
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	checks := []domain.RuleDefinition{
		{RuleType: domain.RuleTypeEarlyClaim, RuleExpression: "claim within 30 days", RuleDescription: "Claim filed soon after policy start"},
		{RuleType: domain.RuleTypeDataMissing, RuleDescription: "Loss description missing"},
		{RuleType: domain.RuleTypeVehicleYear, RuleDescription: "Vehicle year in the future"},
		{RuleType: domain.RuleTypeMissingPhotos, RuleDescription: "Damage photos missing"},
	}
	for i := range checks {
		checks[i].RuleGroup = domain.RuleGroupFraudCheck
		checks[i].IsActive = true
		if err := e.svc.SaveRule(ctx, &checks[i]); err != nil {
			t.Fatalf("seed rule: %v", err)
		}
	}

	for _, d := range []domain.DamageTypeSeverity{
		{DamageType: "dent", SeverityPercentage: 30, IsActive: true},
		{DamageType: "scratch", SeverityPercentage: 10, IsActive: true},
	} {
		d := d
		if err := e.svc.SaveDamageType(ctx, &d); err != nil {
			t.Fatalf("seed damage type: %v", err)
		}
	}

	for _, c := range []domain.ClaimTypeThreshold{
		{ClaimTypeName: domain.ClaimTierSimple, RiskPercentage: 70, IsActive: true},
		{ClaimTypeName: domain.ClaimTierMedium, RiskPercentage: 65, IsActive: true},
		{ClaimTypeName: domain.ClaimTierComplex, RiskPercentage: 60, IsActive: true},
	} {
		c := c
		if err := e.svc.SaveClaimType(ctx, &c); err != nil {
			t.Fatalf("seed claim type: %v", err)
		}
	}
}

func cleanFNOL(claimID string) *domain.FNOL {
	return &domain.FNOL{
		ClaimID:  claimID,
		Policy:   domain.Policy{PolicyNumber: "POL-7", PolicyStatus: "Active", PolicyStartDate: "2024-01-01"},
		Vehicle:  domain.Vehicle{Make: "Honda", Year: "2021"},
		Incident: domain.Incident{DateTimeOfLoss: "2024-05-10T09:30:00", LossDescription: "rear dent", EstimatedAmount: 12000},
		Claimant: domain.Claimant{DriverName: "R. Iyer"},
		Documents: domain.Documents{
			PhotosUploaded: true,
			Photos:         []string{"rear.jpg"},
		},
	}
}

func TestClaimLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, nil, Options{})
	ctx := context.Background()

	created, err := env.svc.SaveFNOL(ctx, cleanFNOL(" CLM-100 "), "adjuster-1")
	if err != nil {
		t.Fatalf("SaveFNOL failed: %v", err)
	}
	if !created {
		t.Error("expected a new claim")
	}

	result, err := env.svc.RunFraudDetection(ctx, "CLM-100")
	if err != nil {
		t.Fatalf("RunFraudDetection failed: %v", err)
	}
	if result.Decision != domain.DecisionAutoApprove {
		t.Errorf("expected Auto Approve, got %s (%s)", result.Decision, result.Reason)
	}
	if result.DamageConfidence != 80 || result.EvaluationScore != 0.8 {
		t.Errorf("expected confidence 80 and score 0.8, got %d and %v", result.DamageConfidence, result.EvaluationScore)
	}

	view, err := env.svc.GetClaim(ctx, "CLM-100")
	if err != nil {
		t.Fatalf("GetClaim failed: %v", err)
	}
	if view.StatusID != domain.ClaimStatusPendingDamage {
		t.Errorf("expected Pending Damage Detection, got %q", view.StatusName)
	}
	if len(view.DamagePhotos) != 1 || view.DamagePhotos[0] != "media/vehicle_damage/rear.jpg" {
		t.Errorf("unexpected photo urls %v", view.DamagePhotos)
	}
	if view.EstimatedAmount == nil || *view.EstimatedAmount != 12000 {
		t.Errorf("expected estimated amount from the evaluation, got %v", view.EstimatedAmount)
	}

	eval, err := env.svc.LatestEvaluation(ctx, "CLM-100")
	if err != nil {
		t.Fatalf("LatestEvaluation failed: %v", err)
	}
	if eval.ThresholdValue != 70 {
		t.Errorf("expected threshold stored as 70, got %d", eval.ThresholdValue)
	}
	if eval.ClaimType == nil || *eval.ClaimType != domain.ClaimTierSimple {
		t.Errorf("expected SIMPLE tier, got %v", eval.ClaimType)
	}

	out, err := env.svc.ApplyAssessment(ctx, "CLM-100", domain.DamageAssessment{
		DamageLabels: []string{"dent", " scratch "},
		Severity:     "Moderate",
	})
	if err != nil {
		t.Fatalf("ApplyAssessment failed: %v", err)
	}
	if !out.Applied {
		t.Fatal("expected assessment to be applied")
	}
	// (10000 + 2*2000) * 1.2, above the 12000 prior.
	if out.ClaimAmount == nil || *out.ClaimAmount != 16800 {
		t.Errorf("expected claim amount 16800, got %v", out.ClaimAmount)
	}
	if out.Decision != domain.DecisionAutoApprove || out.StatusID != domain.ClaimStatusClosedAutoApproved {
		t.Errorf("expected auto approved close, got %s / %d", out.Decision, out.StatusID)
	}

	view, _ = env.svc.GetClaim(ctx, "CLM-100")
	if view.StatusName != "Closed - Auto Approved" {
		t.Errorf("expected Closed - Auto Approved, got %q", view.StatusName)
	}
	if view.Severity == nil || *view.Severity != domain.SeverityModerate {
		t.Errorf("expected stored severity, got %v", view.Severity)
	}
	if len(view.DamageLabels) != 2 || view.DamageLabels[1] != "scratch" {
		t.Errorf("expected trimmed labels, got %v", view.DamageLabels)
	}

	queue, err := env.svc.ListFraudClaims(ctx)
	if err != nil {
		t.Fatalf("ListFraudClaims failed: %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("expected one queued claim, got %d", len(queue))
	}
	row := queue[0]
	if row.UIStatus != domain.UIStatusCleared || row.RiskScore != 25 {
		t.Errorf("expected cleared/25, got %s/%d", row.UIStatus, row.RiskScore)
	}
	if row.Amount != 12000 || row.Customer != "R. Iyer" {
		t.Errorf("unexpected queue row %+v", row)
	}
}

func TestFraudDetectionEarlyClaim(t *testing.T) {
	env := newTestEnv(t, nil, nil, Options{})
	ctx := context.Background()

	fnol := cleanFNOL("CLM-200")
	fnol.Incident.DateTimeOfLoss = "2024-01-10T08:00:00"
	if _, err := env.svc.SaveFNOL(ctx, fnol, "adjuster-1"); err != nil {
		t.Fatalf("SaveFNOL failed: %v", err)
	}

	result, err := env.svc.RunFraudDetection(ctx, "CLM-200")
	if err != nil {
		t.Fatalf("RunFraudDetection failed: %v", err)
	}
	if result.Decision != domain.DecisionReject || result.FraudScore != domain.FraudHigh {
		t.Errorf("expected High fraud reject, got %s/%s", result.Decision, result.FraudScore)
	}
	if result.Reason != "Claim filed soon after policy start" {
		t.Errorf("expected rule description as reason, got %q", result.Reason)
	}

	queue, _ := env.svc.ListFraudClaims(ctx)
	if len(queue) != 1 {
		t.Fatalf("expected one queued claim, got %d", len(queue))
	}
	if queue[0].UIStatus != domain.UIStatusConfirmed || queue[0].RiskScore != 90 {
		t.Errorf("expected confirmed/90, got %s/%d", queue[0].UIStatus, queue[0].RiskScore)
	}
	if len(queue[0].Indicators) != 1 || queue[0].Indicators[0] != result.Reason {
		t.Errorf("expected reason as indicator, got %v", queue[0].Indicators)
	}
}

func TestRunFraudDetectionUnknownClaim(t *testing.T) {
	env := newTestEnv(t, nil, nil, Options{})

	_, err := env.svc.RunFraudDetection(context.Background(), "missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveFNOLRequiresClaimID(t *testing.T) {
	env := newTestEnv(t, nil, nil, Options{})

	_, err := env.svc.SaveFNOL(context.Background(), &domain.FNOL{ClaimID: "   "}, "u")
	if !errors.Is(err, repository.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestApplyAssessmentWithoutEvaluation(t *testing.T) {
	env := newTestEnv(t, nil, nil, Options{})
	ctx := context.Background()

	env.svc.SaveFNOL(ctx, cleanFNOL("CLM-300"), "u")

	out, err := env.svc.ApplyAssessment(ctx, "CLM-300", domain.DamageAssessment{DamageLabels: []string{"dent"}, Severity: "minor"})
	if err != nil {
		t.Fatalf("ApplyAssessment failed: %v", err)
	}
	if out.Applied || out.ClaimAmount != nil {
		t.Errorf("expected nothing applied without an evaluation, got %+v", out)
	}

	view, _ := env.svc.GetClaim(ctx, "CLM-300")
	if view.StatusID != domain.ClaimStatusOpen {
		t.Errorf("expected claim to stay Open, got %q", view.StatusName)
	}
}

func TestAssessAndApplyModelFailure(t *testing.T) {
	assessor := &stubAssessor{err: errors.New("model offline")}
	env := newTestEnv(t, assessor, nil, Options{})
	ctx := context.Background()

	env.svc.SaveFNOL(ctx, cleanFNOL("CLM-400"), "u")
	if _, err := env.svc.RunFraudDetection(ctx, "CLM-400"); err != nil {
		t.Fatalf("RunFraudDetection failed: %v", err)
	}

	out, err := env.svc.AssessAndApply(ctx, "CLM-400", []string{"http://img/1.jpg"})
	if err != nil {
		t.Fatalf("AssessAndApply failed: %v", err)
	}
	if out.ModelError == "" {
		t.Error("expected the model error to be reported")
	}
	if out.Severity != domain.SeverityUnknown || len(out.Damages) != 0 {
		t.Errorf("expected unknown severity and no labels, got %s %v", out.Severity, out.Damages)
	}
	// No labels price as one damage at the moderate multiplier: (10000+2000)*1.2.
	if out.ClaimAmount == nil || *out.ClaimAmount != 14400 {
		t.Errorf("expected 14400, got %v", out.ClaimAmount)
	}
	if out.Decision != domain.DecisionManualReview || out.StatusID != domain.ClaimStatusClosedManualReview {
		t.Errorf("expected manual review close, got %s / %d", out.Decision, out.StatusID)
	}
	if len(assessor.images) != 1 {
		t.Errorf("expected images to reach the assessor, got %v", assessor.images)
	}
}

func TestAssessAndApplyValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("NoAssessor", func(t *testing.T) {
		env := newTestEnv(t, nil, nil, Options{})
		if _, err := env.svc.AssessAndApply(ctx, "CLM-1", []string{"a.jpg"}); !errors.Is(err, repository.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("NoImages", func(t *testing.T) {
		env := newTestEnv(t, &stubAssessor{}, nil, Options{})
		if _, err := env.svc.AssessAndApply(ctx, "CLM-1", nil); !errors.Is(err, repository.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestMasterWriteInvalidatesSnapshot(t *testing.T) {
	env := newTestEnv(t, nil, nil, Options{})
	ctx := context.Background()

	fnol := cleanFNOL("")
	fnol.Documents.Photos = []string{"a.jpg"}

	first, err := env.svc.Evaluate(ctx, fnol)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if first.Decision != domain.DecisionAutoApprove {
		t.Fatalf("expected Auto Approve, got %s", first.Decision)
	}

	types, _ := env.svc.ListClaimTypes(ctx)
	simple := types[0]
	simple.RiskPercentage = 90
	if err := env.svc.SaveClaimType(ctx, simple); err != nil {
		t.Fatalf("SaveClaimType failed: %v", err)
	}

	second, err := env.svc.Evaluate(ctx, fnol)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if second.Decision != domain.DecisionManualReview || second.Threshold != 0.9 {
		t.Errorf("expected the new 90%% threshold to apply, got %s at %v", second.Decision, second.Threshold)
	}
}

func TestRuleEditFromAnotherProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	server := openTestEnv(t, path, nil, nil, Options{})
	server.seed(t)
	ctx := context.Background()

	fnol := cleanFNOL("")
	fnol.Incident.DateTimeOfLoss = "2024-01-15T08:00:00"

	before, err := server.svc.Evaluate(ctx, fnol)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if before.Decision != domain.DecisionReject {
		t.Fatalf("expected early claim reject, got %s", before.Decision)
	}

	// A second service on the same database, as claimctl runs, with a
	// separate snapshot cache that the server never sees invalidated.
	admin := openTestEnv(t, path, nil, nil, Options{})
	defs, err := admin.svc.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules failed: %v", err)
	}
	var early *domain.RuleDefinition
	for _, r := range defs {
		if r.RuleType == domain.RuleTypeEarlyClaim {
			early = r
		}
	}
	if early == nil {
		t.Fatal("seeded Early Claim rule not found")
	}
	early.IsActive = false
	if err := admin.svc.SaveRule(ctx, early); err != nil {
		t.Fatalf("SaveRule failed: %v", err)
	}

	after, err := server.svc.Evaluate(ctx, fnol)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if after.Decision == domain.DecisionReject {
		t.Errorf("expected deactivated Early Claim to stop rejecting, got %s %q", after.Decision, after.Reason)
	}
}

func TestAsyncSavePublishesEvent(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()

	received := make(chan domain.FNOLSavedEvent, 1)
	eventBus.Subscribe(context.Background(), domain.TopicFNOLSaved, func(ctx context.Context, msg *domain.Message) error {
		var ev domain.FNOLSavedEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			return err
		}
		received <- ev
		return nil
	})

	env := newTestEnv(t, nil, eventBus, Options{Async: true})
	if _, err := env.svc.SaveFNOL(context.Background(), cleanFNOL("CLM-500"), "adjuster-9"); err != nil {
		t.Fatalf("SaveFNOL failed: %v", err)
	}

	select {
	case ev := <-received:
		if ev.ClaimID != "CLM-500" || ev.UserID != "adjuster-9" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for fnol saved event")
	}
}

func TestUIStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"Fraudulent", domain.UIStatusConfirmed},
		{"Closed - Auto Approved", domain.UIStatusCleared},
		{"Closed - Manual Review", domain.UIStatusCleared},
		{"Pending Damage Detection", domain.UIStatusUnderReview},
		{"Open", domain.UIStatusUnderReview},
		{"", domain.UIStatusUnderReview},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := UIStatus(tt.status); got != tt.want {
				t.Errorf("UIStatus(%q) = %s, want %s", tt.status, got, tt.want)
			}
		})
	}
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		decision string
		want     int
	}{
		{domain.DecisionReject, 90},
		{domain.DecisionManualReview, 65},
		{domain.DecisionAutoApprove, 25},
		{"", 25},
	}
	for _, tt := range tests {
		t.Run(tt.decision, func(t *testing.T) {
			if got := RiskScore(tt.decision); got != tt.want {
				t.Errorf("RiskScore(%q) = %d, want %d", tt.decision, got, tt.want)
			}
		})
	}
}
