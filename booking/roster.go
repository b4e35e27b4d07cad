package booking

import (
	"context"

	"github.com/ThalefangN/get-more-bw-87-sub000/models"
	"github.com/ThalefangN/get-more-bw-87-sub000/utils"
)

// Roster supplies the cab drivers in display order.
type Roster interface {
	Drivers(ctx context.Context) ([]models.Driver, error)
}

// StaticRoster is a fixed driver list.
type StaticRoster []models.Driver

func (r StaticRoster) Drivers(context.Context) ([]models.Driver, error) {
	return append([]models.Driver(nil), r...), nil
}

// DefaultRoster is shipped with the service and used whenever the drivers
// table is empty or unreachable.
var DefaultRoster = StaticRoster{
	{ID: "drv-001", Name: "Kagiso Molefe", Car: "Toyota Corolla", CabType: models.CabStandard, Rating: 4.8, Phone: "+26771234501", Image: "/drivers/kagiso.jpg", Location: models.Coordinate{Lat: -24.6201, Lng: 25.9105}},
	{ID: "drv-002", Name: "Neo Sebego", Car: "Honda Fit", CabType: models.CabStandard, Rating: 4.6, Phone: "+26772234502", Image: "/drivers/neo.jpg", Location: models.Coordinate{Lat: -24.6355, Lng: 25.9302}},
	{ID: "drv-003", Name: "Tumelo Kgosi", Car: "Nissan Almera", CabType: models.CabStandard, Rating: 4.5, Phone: "+26773234503", Image: "/drivers/tumelo.jpg", Location: models.Coordinate{Lat: -24.6412, Lng: 25.9150}},
	{ID: "drv-004", Name: "Boitumelo Dube", Car: "Toyota Camry", CabType: models.CabComfort, Rating: 4.9, Phone: "+26774234504", Image: "/drivers/boitumelo.jpg", Location: models.Coordinate{Lat: -24.6105, Lng: 25.9288}},
	{ID: "drv-005", Name: "Lesego Tau", Car: "Hyundai Elantra", CabType: models.CabComfort, Rating: 4.7, Phone: "+26775234505", Image: "/drivers/lesego.jpg", Location: models.Coordinate{Lat: -24.6520, Lng: 25.9070}},
	{ID: "drv-006", Name: "Onalenna Phiri", Car: "Mazda 6", CabType: models.CabComfort, Rating: 4.4, Phone: "+26776234506", Image: "/drivers/onalenna.jpg", Location: models.Coordinate{Lat: -24.5998, Lng: 25.9201}},
	{ID: "drv-007", Name: "Mpho Ramotswe", Car: "Mercedes-Benz E-Class", CabType: models.CabPremium, Rating: 5.0, Phone: "+26777234507", Image: "/drivers/mpho.jpg", Location: models.Coordinate{Lat: -24.6602, Lng: 25.9355}},
	{ID: "drv-008", Name: "Thato Mokgadi", Car: "BMW 5 Series", CabType: models.CabPremium, Rating: 4.9, Phone: "+26771234508", Image: "/drivers/thato.jpg", Location: models.Coordinate{Lat: -24.6150, Lng: 25.8960}},
	{ID: "drv-009", Name: "Goitseone Seretse", Car: "Toyota Fortuner", CabType: models.CabSUV, Rating: 4.8, Phone: "+26772234509", Image: "/drivers/goitseone.jpg", Location: models.Coordinate{Lat: -24.5870, Lng: 25.9425}},
}

// FallbackRoster reads Primary and falls back to DefaultRoster.
type FallbackRoster struct {
	Primary Roster
}

func (r FallbackRoster) Drivers(ctx context.Context) ([]models.Driver, error) {
	if r.Primary != nil {
		if drivers, err := r.Primary.Drivers(ctx); err == nil && len(drivers) > 0 {
			return drivers, nil
		}
	}
	return DefaultRoster.Drivers(ctx)
}

const (
	MinimumFare = 30

	budgetTierLimit   = 50
	standardTierLimit = 80
)

// DriversForFare filters the roster by budget: under P50 offers three
// drivers, under P80 six, anything above the whole roster.
func DriversForFare(fare float64, roster []models.Driver) []models.Driver {
	n := len(roster)
	switch {
	case fare < budgetTierLimit:
		n = min(3, n)
	case fare < standardTierLimit:
		n = min(6, n)
	}
	return append([]models.Driver(nil), roster[:n]...)
}

const (
	jitterMinRadius = 0.01
	jitterMaxRadius = 0.03
)

// PresentationJitter places a driver somewhere plausible near loc: a random
// bearing and a 0.01 to 0.03 degree radius. It is display data only and never
// replaces the roster location. rnd must return values in [0, 1).
func PresentationJitter(loc models.Coordinate, rnd func() float64) models.Coordinate {
	bearing := rnd() * 360
	radius := jitterMinRadius + rnd()*(jitterMaxRadius-jitterMinRadius)
	return utils.OffsetByBearing(loc, bearing, radius)
}
