package parking

import "github.com/prometheus/client_golang/prometheus"

// OccupancyCollector exposes the lot's current occupancy to Prometheus. Values
// are read from the lot at scrape time.
type OccupancyCollector struct {
	lot         *ParkingLot
	slots       *prometheus.Desc
	entryPoints *prometheus.Desc
}

func NewOccupancyCollector(lot *ParkingLot) *OccupancyCollector {
	return &OccupancyCollector{
		lot: lot,
		slots: prometheus.NewDesc("parking_lot_slots",
			"Number of slots per capacity class and state",
			[]string{"slot_class", "state"}, nil),
		entryPoints: prometheus.NewDesc("parking_lot_entry_points",
			"Number of addressable slots in each capacity class",
			nil, nil),
	}
}

// RegisterOccupancyCollector registers a collector for lot on reg. If reg is
// nil, the default registerer is used.
func RegisterOccupancyCollector(reg prometheus.Registerer, lot *ParkingLot) (*OccupancyCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := NewOccupancyCollector(lot)
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*OccupancyCollector); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.slots
	ch <- c.entryPoints
}

func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	occupancy := c.lot.Occupancy()
	for _, o := range occupancy {
		class := o.Class.String()
		ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(o.Occupied), class, "occupied")
		ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(o.Available), class, "available")
	}
	if len(occupancy) > 0 {
		ch <- prometheus.MustNewConstMetric(c.entryPoints, prometheus.GaugeValue, float64(occupancy[0].Capacity))
	}
}
