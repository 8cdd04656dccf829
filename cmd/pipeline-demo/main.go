// Command pipeline-demo wires up the counter -> doubler -> printer
// pipeline from end-to-end scenario 1, then the isolated squaring
// transform from scenario 6, and runs both to completion.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"

	"github.com/birdayz/dagflow/element"
	"github.com/birdayz/dagflow/frame"
	"github.com/birdayz/dagflow/isolation"
	"github.com/birdayz/dagflow/kdag"
	"github.com/birdayz/dagflow/pkg/log"
	"github.com/birdayz/dagflow/scheduler"
)

func init() {
	isolation.RegisterWorker("squarer", squarerWorker)
}

func main() {
	// Must run before anything else: if this process was launched as
	// a re-exec'd worker, Main takes over and never returns.
	isolation.Main()

	logger := log.New()

	printed, err := runCounterPipeline(*logger)
	if err != nil {
		logger.Error().Err(err).Msg("counter pipeline failed")
		os.Exit(1)
	}
	fmt.Println("counter -> doubler -> printer:", printed)

	squared, err := runIsolatedSquarer(*logger)
	if err != nil {
		logger.Error().Err(err).Msg("isolated squarer pipeline failed")
		os.Exit(1)
	}
	fmt.Println("isolated squarer:", squared)
}

type counterState struct {
	next, max int
}

// doublerState buffers frames produced by Pull until New drains them,
// since New is called once per source pad per tick regardless of how
// many pulls happened first.
type doublerState struct {
	pending []frame.Frame
}

type printerState struct {
	values []int
}

func runCounterPipeline(logger zerolog.Logger) ([]int, error) {
	counter := &counterState{next: 1, max: 5}
	source := element.Must("counter", []string{"out"}, nil, element.Hooks{
		New: func(e *element.Element, sourcePad string) (frame.Frame, error) {
			st := e.State().(*counterState)
			if st.next > st.max {
				return frame.EOS(), nil
			}
			v := st.next
			st.next++
			return frame.New(v), nil
		},
	}, counter)

	dbl := &doublerState{}
	doubler := element.Must("doubler", []string{"out"}, []string{"in"}, element.Hooks{
		Pull: func(e *element.Element, sinkPad string, f frame.Frame) error {
			st := e.State().(*doublerState)
			if payload, ok := f.Payload(); ok {
				st.pending = append(st.pending, frame.New(payload.(int)*2))
			}
			if f.IsEOS() {
				st.pending = append(st.pending, frame.EOS())
				return e.MarkEOS(sinkPad)
			}
			return nil
		},
		New: func(e *element.Element, sourcePad string) (frame.Frame, error) {
			st := e.State().(*doublerState)
			if len(st.pending) == 0 {
				return frame.New(nil), nil
			}
			f := st.pending[0]
			st.pending = st.pending[1:]
			return f, nil
		},
	}, dbl)

	printer := &printerState{}
	sink := element.Must("printer", nil, []string{"in"}, element.Hooks{
		Pull: func(e *element.Element, sinkPad string, f frame.Frame) error {
			st := e.State().(*printerState)
			if payload, ok := f.Payload(); ok {
				if v, ok := payload.(int); ok {
					st.values = append(st.values, v)
				}
			}
			if f.IsEOS() {
				return e.MarkEOS(sinkPad)
			}
			return nil
		},
	}, printer)

	g := kdag.NewGraph()
	if err := g.InsertWithLinks([]kdag.LinkSpec{
		{SourceElement: "counter", SourcePad: "out", SinkElement: "doubler", SinkPad: "in"},
		{SourceElement: "doubler", SourcePad: "out", SinkElement: "printer", SinkPad: "in"},
	}, source, doubler, sink); err != nil {
		return nil, err
	}

	dag, warnings, err := g.Build()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	schedLog := log.Component(&logger, "scheduler")
	sched := scheduler.New(dag, scheduler.WithLogger(zerologr.New(&schedLog)))
	if err := sched.Run(context.Background()); err != nil {
		return nil, err
	}
	return printer.values, nil
}

func squarerWorker(ctx context.Context, wctx *isolation.WorkerContext) error {
	for {
		select {
		case <-wctx.Stop().Done():
			return nil
		default:
		}

		_, f, ok, err := wctx.Recv(time.Second)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		payload, hasPayload := f.Payload()
		if !hasPayload {
			if f.IsEOS() {
				if err := wctx.Send("out", frame.EOS()); err != nil {
					return err
				}
			}
			continue
		}

		v := payload.(int)
		out := frame.New(v * v)
		if f.IsEOS() {
			out = frame.EOSWithPayload(v * v)
		}
		if err := wctx.Send("out", out); err != nil {
			return err
		}
	}
}

func runIsolatedSquarer(logger zerolog.Logger) ([]int, error) {
	transportLog := log.Component(&logger, "isolation")
	transport, err := isolation.Start(isolation.Config{Worker: "squarer"}, isolation.WithLogger(zerologr.New(&transportLog)))
	if err != nil {
		return nil, err
	}

	squarer := element.Must("squarer", []string{"out"}, []string{"in"}, element.Hooks{
		Pull: func(e *element.Element, sinkPad string, f frame.Frame) error {
			return transport.Pull(sinkPad, f)
		},
		New: func(e *element.Element, sourcePad string) (frame.Frame, error) {
			return transport.New(sourcePad)
		},
	}, nil)

	source := element.Must("numbers", []string{"out"}, nil, element.Hooks{
		New: func(e *element.Element, sourcePad string) (frame.Frame, error) {
			st := e.State().(*counterState)
			if st.next > st.max {
				return frame.EOS(), nil
			}
			v := st.next
			st.next++
			return frame.New(v), nil
		},
	}, &counterState{next: 1, max: 5})

	printer := &printerState{}
	sink := element.Must("squares", nil, []string{"in"}, element.Hooks{
		Pull: func(e *element.Element, sinkPad string, f frame.Frame) error {
			st := e.State().(*printerState)
			if payload, ok := f.Payload(); ok {
				if v, ok := payload.(int); ok {
					st.values = append(st.values, v)
				}
			}
			if f.IsEOS() {
				return e.MarkEOS(sinkPad)
			}
			return nil
		},
	}, printer)

	g := kdag.NewGraph()
	if err := g.InsertWithLinks([]kdag.LinkSpec{
		{SourceElement: "numbers", SourcePad: "out", SinkElement: "squarer", SinkPad: "in"},
		{SourceElement: "squarer", SourcePad: "out", SinkElement: "squares", SinkPad: "in"},
	}, source, squarer, sink); err != nil {
		return nil, err
	}

	dag, warnings, err := g.Build()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}

	schedLog := log.Component(&logger, "scheduler")
	sched := scheduler.New(dag, scheduler.WithLogger(zerologr.New(&schedLog)), scheduler.WithTransports(transport))
	if err := sched.Run(context.Background()); err != nil {
		return nil, err
	}
	return printer.values, nil
}
