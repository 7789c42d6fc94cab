package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/usecases"
)

// buildSchema creates the GraphQL schema wired to our services. Field names
// follow the JSON tags of the domain types, which the default resolver reads.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	spotCountType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SpotCount",
		Fields: graphql.Fields{
			"total":     &graphql.Field{Type: graphql.Int},
			"available": &graphql.Field{Type: graphql.Int},
		},
	})

	spotCountsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SpotCounts",
		Fields: graphql.Fields{
			"basic":              &graphql.Field{Type: spotCountType},
			"covered":            &graphql.Field{Type: spotCountType},
			"charging":           &graphql.Field{Type: spotCountType},
			"coveredAndCharging": &graphql.Field{Type: spotCountType},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"category":    &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"rating":      &graphql.Field{Type: graphql.Float},
			"hourlyPrice": &graphql.Field{Type: graphql.Float},
			"spots":       &graphql.Field{Type: spotCountsType},
			"amenities":   &graphql.Field{Type: graphql.NewList(graphql.String)},
			"images":      &graphql.Field{Type: graphql.NewList(graphql.String)},
		},
	})

	slotType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TimeSlot",
		Fields: graphql.Fields{
			"hour":                        &graphql.Field{Type: graphql.Int},
			"startTime":                   &graphql.Field{Type: graphql.DateTime},
			"endTime":                     &graphql.Field{Type: graphql.DateTime},
			"isPast":                      &graphql.Field{Type: graphql.Boolean},
			"basicAvailable":              &graphql.Field{Type: graphql.Int},
			"coveredAvailable":            &graphql.Field{Type: graphql.Int},
			"chargingAvailable":           &graphql.Field{Type: graphql.Int},
			"coveredAndChargingAvailable": &graphql.Field{Type: graphql.Int},
			"totalSpots":                  &graphql.Field{Type: graphql.Int},
		},
	})

	pricingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Pricing",
		Fields: graphql.Fields{
			"hourlyRate":         &graphql.Field{Type: graphql.Float},
			"dailyRate":          &graphql.Field{Type: graphql.Float},
			"coveredHourlyRate":  &graphql.Field{Type: graphql.Float},
			"coveredDailyRate":   &graphql.Field{Type: graphql.Float},
			"chargingHourlyRate": &graphql.Field{Type: graphql.Float},
			"chargingDailyRate":  &graphql.Field{Type: graphql.Float},
		},
	})

	featureCountsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FeatureCounts",
		Fields: graphql.Fields{
			"total":              &graphql.Field{Type: graphql.Int},
			"basic":              &graphql.Field{Type: graphql.Int},
			"covered":            &graphql.Field{Type: graphql.Int},
			"charging":           &graphql.Field{Type: graphql.Int},
			"coveredAndCharging": &graphql.Field{Type: graphql.Int},
		},
	})

	featuresType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Features",
		Fields: graphql.Fields{
			"covered":  &graphql.Field{Type: graphql.Boolean},
			"charging": &graphql.Field{Type: graphql.Boolean},
		},
	})

	// Resolved from slotBoardView, the same annotated board REST returns.
	slotBoardType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SlotBoard",
		Fields: graphql.Fields{
			"locationId":      &graphql.Field{Type: graphql.String},
			"date":            &graphql.Field{Type: graphql.String},
			"vehicleType":     &graphql.Field{Type: graphql.String},
			"slots":           &graphql.Field{Type: graphql.NewList(slotType)},
			"pricing":         &graphql.Field{Type: pricingType},
			"featureCounts":   &graphql.Field{Type: featureCountsType},
			"features":        &graphql.Field{Type: featuresType},
			"hourlyRate":      &graphql.Field{Type: graphql.Float},
			"selectableHours": &graphql.Field{Type: graphql.NewList(graphql.Int)},
		},
	})

	intervalType := graphql.NewObject(graphql.ObjectConfig{
		Name: "BookingInterval",
		Fields: graphql.Fields{
			"start": &graphql.Field{Type: graphql.DateTime},
			"end":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	quoteType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Quote",
		Fields: graphql.Fields{
			"hours":      &graphql.Field{Type: graphql.NewList(graphql.Int)},
			"hourlyRate": &graphql.Field{Type: graphql.Float},
			"totalPrice": &graphql.Field{Type: graphql.Float},
			"interval":   &graphql.Field{Type: intervalType},
			"contiguous": &graphql.Field{Type: graphql.Boolean},
		},
	})

	boardArgs := graphql.FieldConfigArgument{
		"locationId":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"date":        &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
		"vehicleType": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: string(domain.VehicleCar)},
		"covered":     &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
		"charging":    &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
	}
	quoteArgs := graphql.FieldConfigArgument{
		"hours": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.Int)))},
	}
	for k, v := range boardArgs {
		quoteArgs[k] = v
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"nearbyPlaces": &graphql.Field{
				Type:        graphql.NewList(placeType),
				Description: "Places within radiusKm of a point",
				Args: graphql.FieldConfigArgument{
					"lat":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radiusKm": &graphql.ArgumentConfig{Type: graphql.Float},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					center := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					q := deps.Maps.QueryAround(center)
					if r, ok := p.Args["radiusKm"].(float64); ok {
						q.RadiusKm = r
					}
					if l, ok := p.Args["limit"].(int); ok {
						q.Limit = l
					}
					return deps.Maps.Nearby(p.Context, q)
				},
			},
			"slots": &graphql.Field{
				Type:        slotBoardType,
				Description: "Hourly availability of a location on a date, annotated for a feature selection",
				Args:        boardArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					vt, err := parseVehicleType(p.Args["vehicleType"].(string))
					if err != nil {
						return nil, err
					}
					board, err := deps.Availability.LoadSlots(p.Context, p.Args["locationId"].(string), p.Args["date"].(string), vt)
					if err != nil {
						return nil, err
					}
					return slotBoardView(annotateSlots(board, featureArgs(p.Args))), nil
				},
			},
			"quote": &graphql.Field{
				Type:        quoteType,
				Description: "Price of a selection of hours",
				Args:        quoteArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					vt, err := parseVehicleType(p.Args["vehicleType"].(string))
					if err != nil {
						return nil, err
					}
					raw, _ := p.Args["hours"].([]interface{})
					hours := make([]int, 0, len(raw))
					for _, h := range raw {
						if n, ok := h.(int); ok {
							hours = append(hours, n)
						}
					}
					return deps.Bookings.Quote(p.Context, usecases.QuoteInput{
						LocationID:  p.Args["locationId"].(string),
						Date:        p.Args["date"].(string),
						VehicleType: vt,
						Hours:       hours,
						Features:    featureArgs(p.Args),
					})
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func featureArgs(args map[string]interface{}) domain.Features {
	covered, _ := args["covered"].(bool)
	charging, _ := args["charging"].(bool)
	return domain.Features{Covered: covered, Charging: charging}
}

// slotBoardView flattens the annotated board for the default resolver, which
// does not look through embedded structs.
func slotBoardView(r SlotsResponse) map[string]interface{} {
	return map[string]interface{}{
		"locationId":      r.LocationID,
		"date":            r.Date,
		"vehicleType":     string(r.VehicleType),
		"slots":           r.Slots,
		"pricing":         r.Pricing,
		"featureCounts":   r.FeatureCounts,
		"features":        r.Features,
		"hourlyRate":      r.HourlyRate,
		"selectableHours": r.Selectable,
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
