package ui

import (
	"image/color"
	"strconv"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// Countdown overlays the remaining seconds before a self-serve shot.
type Countdown struct {
	widget.BaseWidget
	Seconds int
	Step    time.Duration

	text *canvas.Text

	mtx  sync.Mutex
	stop chan struct{}
}

func NewCountdown(seconds int, textSize float32) *Countdown {
	text := canvas.NewText("", color.White)
	text.TextSize = textSize
	text.TextStyle = fyne.TextStyle{Bold: true}
	text.Alignment = fyne.TextAlignCenter
	c := &Countdown{Seconds: seconds, Step: time.Second, text: text}
	c.ExtendBaseWidget(c)
	return c
}

func (c *Countdown) CreateRenderer() fyne.WidgetRenderer {
	return &countdownRenderer{countdown: c}
}

// Start shows the countdown and calls done once it reaches zero. A running
// countdown is replaced.
func (c *Countdown) Start(done func()) {
	stop := make(chan struct{})
	c.mtx.Lock()
	c.stopLocked()
	c.stop = stop
	c.mtx.Unlock()
	go c.run(stop, done)
}

// Stop cancels the countdown. done is not called afterwards.
func (c *Countdown) Stop() {
	c.mtx.Lock()
	stopped := c.stopLocked()
	c.mtx.Unlock()
	if stopped {
		c.show("")
	}
}

func (c *Countdown) stopLocked() bool {
	if c.stop == nil {
		return false
	}
	close(c.stop)
	c.stop = nil
	return true
}

// Text is what the overlay shows, empty while idle.
func (c *Countdown) Text() string {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.text.Text
}

func (c *Countdown) run(stop chan struct{}, done func()) {
	ticker := time.NewTicker(c.Step)
	defer ticker.Stop()
	for left := c.Seconds; left > 0; left-- {
		c.show(strconv.Itoa(left))
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}

	c.mtx.Lock()
	if c.stop != stop {
		c.mtx.Unlock()
		return
	}
	c.stop = nil
	c.mtx.Unlock()
	c.show("")
	if done != nil {
		done()
	}
}

func (c *Countdown) show(s string) {
	c.mtx.Lock()
	c.text.Text = s
	c.mtx.Unlock()
	canvas.Refresh(c.text)
}

type countdownRenderer struct {
	countdown *Countdown
}

func (r *countdownRenderer) Layout(size fyne.Size) {
	r.countdown.text.Resize(size)
}

func (r *countdownRenderer) MinSize() fyne.Size {
	return r.countdown.text.MinSize()
}

func (r *countdownRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.countdown.text}
}

func (r *countdownRenderer) Refresh() {
	r.countdown.text.Refresh()
}

func (r *countdownRenderer) Destroy() {}
