package service

import (
	"context"
	"testing"
	"time"
)

type fakeService struct {
	Base
	id     string
	events *[]string
	loopDone chan struct{}
}

func (f *fakeService) Identifier() string { return f.id }

func (f *fakeService) Setup(ctx *Ctx) error {
	*f.events = append(*f.events, f.id+":setup")
	return nil
}

func (f *fakeService) StartTasks(ctx *Ctx) error {
	*f.events = append(*f.events, f.id+":start")
	f.loopDone = make(chan struct{})
	ctx.Spawn(func(c context.Context) {
		defer close(f.loopDone)
		<-c.Done()
	})
	return nil
}

func (f *fakeService) StopTasks(ctx *Ctx) error {
	*f.events = append(*f.events, f.id+":stop")
	return nil
}

func (f *fakeService) Teardown(ctx *Ctx) error {
	*f.events = append(*f.events, f.id+":teardown")
	return nil
}

func TestContainerStartStopOrder(t *testing.T) {
	var events []string
	c := NewContainer(nil)
	a := &fakeService{id: "a", events: &events}
	b := &fakeService{id: "b", events: &events}
	c.Register(a)
	c.Register(b)

	if err := c.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	c.Stop()

	want := []string{
		"a:setup", "a:start",
		"b:setup", "b:start",
		"b:stop", "b:teardown",
		"a:stop", "a:teardown",
	}
	if len(events) != len(want) {
		t.Fatalf("got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("got %v, want %v", events, want)
		}
	}

	select {
	case <-a.loopDone:
	case <-time.After(time.Second):
		t.Fatal("service a's spawned goroutine never exited")
	}
}

func TestCtxState(t *testing.T) {
	c := NewCtx(nil)
	if c.State() != Stopped {
		t.Fatalf("expected Stopped, got %s", c.State())
	}
	c.starting()
	if !c.IsRunning() {
		t.Fatal("expected IsRunning during Starting")
	}
	c.started()
	if !c.IsRunning() {
		t.Fatal("expected IsRunning during Running")
	}
	c.stopping()
	if c.IsRunning() {
		t.Fatal("expected not running during Stopping")
	}
}
