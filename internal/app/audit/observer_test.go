package audit

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/meshaudit/internal/domain"
)

type recordObserver struct {
	mu sync.Mutex

	startCalls int
	phases     []string
	assets     []string
	skips      []string
	outcome    string
}

func (o *recordObserver) OnStart(req Request) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordObserver) OnAssetDone(idx, total int, ref domain.AssetRef, c domain.Category, skip string, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.assets = append(o.assets, ref.Name)
	o.skips = append(o.skips, skip)
}

func (o *recordObserver) OnFinish(outcome string, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcome = outcome
}

func TestRun_EmitsPhaseAndAssetEvents(t *testing.T) {
	p := scenarioProvider()
	p.assets = append(p.assets, asset("T_Wood", "Texture2D", nil))

	obs := &recordObserver{}
	_ = New(p, nil, WithObserver(obs)).Run(context.Background(), Request{
		Selection: domain.NewSelection(domain.StaticMesh, domain.Skeleton),
		Mode:      domain.Total,
	})

	if obs.startCalls != 1 {
		t.Fatalf("期望 OnStart 调用 1 次，实际 %d", obs.startCalls)
	}
	wantPhases := []string{"query", "scan", "report"}
	if !reflect.DeepEqual(obs.phases, wantPhases) {
		t.Fatalf("阶段事件不符合预期：got=%v want=%v", obs.phases, wantPhases)
	}
	if want := []string{"SM_A", "SM_B", "SK_A", "T_Wood"}; !reflect.DeepEqual(obs.assets, want) {
		t.Fatalf("资产事件不符合预期：%v", obs.assets)
	}
	if want := []string{"", "", "", domain.SkipUnrecognized}; !reflect.DeepEqual(obs.skips, want) {
		t.Fatalf("跳过原因不符合预期：%v", obs.skips)
	}
	if obs.outcome != domain.OutcomeCompleted {
		t.Fatalf("OnFinish 结果不正确：%q", obs.outcome)
	}
}

func TestRun_EmptySelectionStillStartsAndFinishes(t *testing.T) {
	obs := &recordObserver{}
	_ = New(scenarioProvider(), nil, WithObserver(obs)).Run(context.Background(), Request{Mode: domain.Total})
	if obs.startCalls != 1 || obs.outcome != domain.OutcomeEmptySelection || len(obs.phases) != 0 {
		t.Fatalf("start=%d outcome=%q phases=%v", obs.startCalls, obs.outcome, obs.phases)
	}
}

func TestRun_NilObserver_SameResult(t *testing.T) {
	fixed := func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	req := Request{Selection: domain.AllSelected(), Mode: domain.Average}

	a := New(scenarioProvider(), nil, WithClock(fixed)).Run(context.Background(), req)
	b := New(scenarioProvider(), nil, WithClock(fixed), WithObserver(&recordObserver{})).Run(context.Background(), req)

	if !reflect.DeepEqual(a, b) {
		t.Fatalf("observer 不应改变结果：\n%+v\n%+v", a, b)
	}
}

func TestObservers_FanOut(t *testing.T) {
	o1, o2 := &recordObserver{}, &recordObserver{}
	fan := Observers{o1, nil, o2}

	fan.OnStart(Request{})
	fan.OnPhaseDone("scan", nil, 0)
	fan.OnAssetDone(1, 1, domain.AssetRef{Name: "x"}, domain.Skeleton, "", 0)
	fan.OnFinish(domain.OutcomeCompleted, 0)

	for i, o := range []*recordObserver{o1, o2} {
		if o.startCalls != 1 || len(o.phases) != 1 || len(o.assets) != 1 || o.outcome != domain.OutcomeCompleted {
			t.Fatalf("observer[%d] 未收到全部事件：%+v", i, o)
		}
	}
}
