package components

import (
	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
)

// RateChart plots the last Capacity values pushed, one per poll.
type RateChart struct {
	History  []float64
	Capacity int
	Width    int
	Height   int
}

func NewRateChart(width, height, capacity int) *RateChart {
	if capacity < 2 {
		capacity = 2
	}
	return &RateChart{
		History:  make([]float64, 0, capacity+1),
		Capacity: capacity,
		Width:    width,
		Height:   height,
	}
}

func (c *RateChart) Push(value float64) {
	c.History = append(c.History, value)
	if len(c.History) > c.Capacity {
		c.History = c.History[1:]
	}
}

func (c *RateChart) SetSize(w, h int) {
	c.Width = w
	c.Height = h
}

// View redraws the chart. The Y range follows the data and always includes 0.
func (c *RateChart) View() string {
	minY, maxY := 0.0, 1.0
	for _, v := range c.History {
		minY = min(minY, v)
		maxY = max(maxY, v)
	}

	// width, height, minX, maxX, minY, maxY
	lc := linechart.New(c.Width, c.Height, 0, float64(c.Capacity-1), minY, maxY)
	for i := 0; i < len(c.History)-1; i++ {
		lc.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: c.History[i]},
			canvas.Float64Point{X: float64(i + 1), Y: c.History[i+1]},
		)
	}
	lc.DrawXYAxisAndLabel()
	return lc.View()
}
