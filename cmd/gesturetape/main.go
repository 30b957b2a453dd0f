// Command gesturetape replays a recorded input tape through the view
// engine and prints the status transitions and annotations it produces.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"pageflow/internal/annotation"
	"pageflow/internal/engine"
	"pageflow/internal/frame"
	"pageflow/internal/gesture"
	"pageflow/pkg/geometry"
)

// tape is the on-disk replay format. Times are milliseconds from the
// start of the tape; events with no at_ms run at the current time.
type tape struct {
	Viewport struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"viewport"`
	Pages []struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	} `json:"pages"`
	Events []tapeEvent `json:"events"`
}

type tapeEvent struct {
	AtMs   int     `json:"at_ms"`
	Kind   string  `json:"kind"`
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Button string  `json:"button"`
	Mod    string  `json:"mod"`
	Target string  `json:"target"`
	Phase  string  `json:"phase"`
	Scale  float64 `json:"scale"`
	Tool   string  `json:"tool"`
	Mode   string  `json:"mode"`
	Page   int     `json:"page"`
}

func main() {
	tapePath := flag.String("tape", "", "Path to a JSON input tape")
	frameMs := flag.Int("frame", 16, "Frame interval in milliseconds")
	settleMax := flag.Int("settle", 600, "Max frames to run after the last event")
	verbose := flag.Bool("v", false, "Echo every input event as it is dispatched")
	flag.Parse()

	if *tapePath == "" {
		fmt.Println("Usage: gesturetape -tape <path> [-frame 16] [-settle 600] [-v]")
		os.Exit(1)
	}

	data, err := os.ReadFile(*tapePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read tape: %v\n", err)
		os.Exit(1)
	}
	var t tape
	if err := json.Unmarshal(data, &t); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse tape: %v\n", err)
		os.Exit(1)
	}
	if len(t.Pages) == 0 {
		fmt.Fprintln(os.Stderr, "Tape declares no pages")
		os.Exit(1)
	}
	if t.Viewport.Width <= 0 || t.Viewport.Height <= 0 {
		fmt.Fprintln(os.Stderr, "Tape declares no viewport size")
		os.Exit(1)
	}

	fmt.Printf("Loaded tape: %d events, %d pages, viewport %.0fx%.0f\n",
		len(t.Events), len(t.Pages), t.Viewport.Width, t.Viewport.Height)

	frameDt := time.Duration(*frameMs) * time.Millisecond
	clock := frame.NewManualClock(time.Unix(0, 0))
	sched := frame.NewManualScheduler(clock)
	start := clock.Now()

	paints := 0
	commits := 0
	eng := engine.New(sched, clock, engine.DefaultOptions(), engine.Callbacks{
		Paint: func() { paints++ },
		StatusChanged: func(st engine.Status) {
			fmt.Printf("%9s  status: page %d/%d  scale %.0f%%  mode %s  tool %s\n",
				stamp(clock.Now().Sub(start)), st.Page, st.PageCount, st.Scale*100, st.Mode, st.Tool)
		},
		AnnotationCommitted: func(c annotation.Committed) {
			commits++
			fmt.Printf("%9s  commit: %s on page %d\n",
				stamp(clock.Now().Sub(start)), c.Kind(), c.PageNumber())
		},
	})
	defer eng.Close()

	eng.SetViewportSize(t.Viewport.Width, t.Viewport.Height)
	eng.OnPageCountKnown(len(t.Pages))
	eng.OnFirstPageNaturalSize(t.Pages[0].Width, t.Pages[0].Height)
	for i := 1; i < len(t.Pages); i++ {
		eng.SetPageSize(i+1, t.Pages[i].Width, t.Pages[i].Height)
	}

	fmt.Printf("\n=== Replay ===\n")
	for i, ev := range t.Events {
		target := time.Duration(ev.AtMs) * time.Millisecond
		for clock.Now().Sub(start) < target {
			step := frameDt
			if rem := target - clock.Now().Sub(start); rem < step {
				step = rem
			}
			sched.Tick(step)
		}
		if *verbose {
			fmt.Printf("%9s  input:  %s\n", stamp(clock.Now().Sub(start)), describeEvent(ev))
		}
		if err := dispatch(eng, ev); err != nil {
			fmt.Fprintf(os.Stderr, "Event %d: %v\n", i, err)
			os.Exit(1)
		}
		// Flush the frame this event scheduled; Tick(0) leaves the
		// clock where it is, so momentum sees no elapsed time.
		sched.Tick(0)
	}

	fmt.Printf("\n=== Settle ===\n")
	ran := sched.RunUntilIdle(frameDt, *settleMax)
	if ran >= *settleMax {
		fmt.Fprintf(os.Stderr, "Engine still animating after %d frames\n", ran)
		os.Exit(1)
	}
	fmt.Printf("Idle after %d frames (%dms)\n", ran, (time.Duration(ran)*frameDt).Milliseconds())

	st := eng.Status()
	tx, ty := eng.Translate()
	fmt.Printf("\n=== Final state ===\n")
	fmt.Printf("Page: %d / %d\n", st.Page, st.PageCount)
	fmt.Printf("Scale: %.2f\n", st.Scale)
	fmt.Printf("Translate: (%.1f, %.1f)\n", tx, ty)
	fmt.Printf("Visible pages: %v\n", eng.VisiblePages())
	fmt.Printf("Frames: %d   Paints: %d   Commits: %d   Annotations: %d\n",
		sched.Ticks(), paints, commits, eng.AnnotationCount())
}

// dispatch feeds one tape event to the engine.
func dispatch(eng *engine.Engine, ev tapeEvent) error {
	pos := geometry.Point2D{X: ev.X, Y: ev.Y}
	switch ev.Kind {
	case "down":
		eng.HandlePointerDown(pointerEvent(ev, pos))
	case "move":
		eng.HandlePointerMove(pointerEvent(ev, pos))
	case "up":
		eng.HandlePointerUp(pointerEvent(ev, pos))
	case "cancel":
		eng.HandlePointerCancel(gesture.PointerID(ev.ID))
	case "wheel":
		eng.HandleWheel(gesture.WheelEvent{
			Pos: pos, DeltaX: ev.DX, DeltaY: ev.DY, Mod: parseMod(ev.Mod),
		})
	case "pinch":
		eng.HandlePinch(gesture.PinchEvent{
			Phase: parsePinchPhase(ev.Phase), Scale: ev.Scale, Pos: pos,
		})
	case "tool":
		eng.SetTool(gesture.ToolModeFromString(ev.Tool))
	case "mode":
		eng.SetViewMode(engine.ViewModeFromString(ev.Mode))
	case "zoom":
		eng.SetZoom(ev.Scale)
	case "goto":
		eng.GotoPage(ev.Page)
	case "scroll":
		eng.ScrollBy(ev.DX, ev.DY)
	case "resize":
		eng.SetViewportSize(ev.X, ev.Y)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return nil
}

func pointerEvent(ev tapeEvent, pos geometry.Point2D) gesture.PointerEvent {
	btn := gesture.ButtonPrimary
	if ev.Button == "secondary" {
		btn = gesture.ButtonSecondary
	}
	target := gesture.TargetContent
	if ev.Target == "control" {
		target = gesture.TargetControl
	}
	return gesture.PointerEvent{
		ID:     gesture.PointerID(ev.ID),
		Pos:    pos,
		Button: btn,
		Mod:    parseMod(ev.Mod),
		Target: target,
	}
}

// parseMod reads a "+"-joined modifier list like "ctrl+shift".
func parseMod(s string) gesture.Modifier {
	var mod gesture.Modifier
	for _, name := range strings.Split(s, "+") {
		switch strings.TrimSpace(name) {
		case "ctrl":
			mod |= gesture.ModCtrl
		case "meta":
			mod |= gesture.ModMeta
		case "shift":
			mod |= gesture.ModShift
		case "alt":
			mod |= gesture.ModAlt
		}
	}
	return mod
}

func parsePinchPhase(s string) gesture.PinchPhase {
	switch s {
	case "begin":
		return gesture.PinchBegin
	case "end":
		return gesture.PinchEnd
	default:
		return gesture.PinchChange
	}
}

func describeEvent(ev tapeEvent) string {
	switch ev.Kind {
	case "down", "move", "up":
		return fmt.Sprintf("%s #%d (%.0f,%.0f)", ev.Kind, ev.ID, ev.X, ev.Y)
	case "cancel":
		return fmt.Sprintf("cancel #%d", ev.ID)
	case "wheel":
		return fmt.Sprintf("wheel (%.0f,%.0f) d=(%.0f,%.0f) mod=%q", ev.X, ev.Y, ev.DX, ev.DY, ev.Mod)
	case "pinch":
		return fmt.Sprintf("pinch %s scale=%.3f (%.0f,%.0f)", ev.Phase, ev.Scale, ev.X, ev.Y)
	case "tool":
		return fmt.Sprintf("tool %s", ev.Tool)
	case "mode":
		return fmt.Sprintf("mode %s", ev.Mode)
	case "zoom":
		return fmt.Sprintf("zoom %.2f", ev.Scale)
	case "goto":
		return fmt.Sprintf("goto page %d", ev.Page)
	case "scroll":
		return fmt.Sprintf("scroll by (%.0f,%.0f)", ev.DX, ev.DY)
	case "resize":
		return fmt.Sprintf("resize %.0fx%.0f", ev.X, ev.Y)
	}
	return ev.Kind
}

func stamp(d time.Duration) string {
	return fmt.Sprintf("t=%dms", d.Milliseconds())
}
