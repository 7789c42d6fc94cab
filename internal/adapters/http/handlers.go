package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/usecases"
)

// PlacesResponse is the body of place discovery endpoints.
// Bounds is the area the query covered, for fitting the map to the results.
type PlacesResponse struct {
	Places []domain.PlaceSummary `json:"places"`
	Count  int                   `json:"count"`
	Bounds *domain.GeoRegion     `json:"bounds,omitempty"`
}

func placesResponse(places []domain.PlaceSummary, bounds *domain.GeoRegion) PlacesResponse {
	if places == nil {
		places = []domain.PlaceSummary{}
	}
	return PlacesResponse{Places: places, Count: len(places), Bounds: bounds}
}

// queryFloat parses a float query parameter, reporting whether it was present.
func queryFloat(c *fiber.Ctx, keys ...string) (float64, bool, error) {
	for _, k := range keys {
		raw := c.Query(k)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, true, fiber.NewError(fiber.StatusBadRequest, k+" must be a number")
		}
		return v, true, nil
	}
	return 0, false, nil
}

// NearbyPlacesHandler returns places around a point, or inside a viewport
// when ne_lat/ne_lng/sw_lat/sw_lng are given.
func NearbyPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		opts := deps.Maps.Options()

		var q domain.NearbyQuery
		if neLat, ok, err := queryFloat(c, "ne_lat"); ok {
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			neLng, _, err1 := queryFloat(c, "ne_lng")
			swLat, _, err2 := queryFloat(c, "sw_lat")
			swLng, _, err3 := queryFloat(c, "sw_lng")
			if err1 != nil || err2 != nil || err3 != nil {
				return errBadRequest(c, "viewport corners must be numbers")
			}
			region := domain.GeoRegion{
				NorthEast: domain.GeoPoint{Lat: neLat, Lng: neLng},
				SouthWest: domain.GeoPoint{Lat: swLat, Lng: swLng},
			}
			if err := region.Validate(); err != nil {
				return errBadRequest(c, err.Error())
			}
			q = deps.Maps.QueryForRegion(region)
		} else {
			lat, okLat, err1 := queryFloat(c, "lat")
			lng, okLng, err2 := queryFloat(c, "lng", "lon")
			if err1 != nil || err2 != nil {
				return errBadRequest(c, "lat and lng must be numbers")
			}
			if !okLat || !okLng {
				return errBadRequest(c, "lat and lng are required")
			}
			radius, ok, err := queryFloat(c, "radius_km", "radiusKm")
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			if !ok {
				radius = opts.SearchRadiusKm
			}
			if radius <= 0 || radius > opts.MaxRadiusKm {
				return errBadRequest(c, "radius_km must be between 0 and "+strconv.FormatFloat(opts.MaxRadiusKm, 'f', -1, 64))
			}
			q = domain.NearbyQuery{Center: domain.GeoPoint{Lat: lat, Lng: lng}, RadiusKm: radius}
		}
		q.Limit = c.QueryInt("limit", opts.NearbyLimit)

		places, err := deps.Maps.Nearby(c.UserContext(), q)
		if err != nil {
			return writeError(c, err)
		}
		bounds := q.Bounds()
		return c.JSON(placesResponse(places, &bounds))
	}
}

// AlongRouteHandler returns places along the driving route between two
// place ids.
func AlongRouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Query("origin")
		destination := c.Query("destination")
		if origin == "" || destination == "" {
			return errBadRequest(c, "origin and destination are required")
		}

		q, err := deps.Maps.RouteQuery(c.UserContext(), origin, destination)
		if err != nil {
			return writeError(c, err)
		}
		places, err := deps.Maps.AlongRoute(c.UserContext(), q)
		if err != nil {
			return writeError(c, err)
		}
		resp := placesResponse(places, nil)
		if bounds, err := q.Bounds(); err == nil {
			resp.Bounds = &bounds
		}
		return c.JSON(resp)
	}
}

// SlotsResponse is a slot board annotated for one feature selection.
type SlotsResponse struct {
	*domain.SlotBoard
	Features   domain.Features `json:"features"`
	HourlyRate float64         `json:"hourlyRate"`
	Selectable []int           `json:"selectableHours"`
}

// annotateSlots marks which hours can be booked with f and at what rate.
func annotateSlots(board *domain.SlotBoard, f domain.Features) SlotsResponse {
	selectable := make([]int, 0, len(board.Slots))
	for _, s := range board.Slots {
		if domain.IsSlotSelectable(s, f) {
			selectable = append(selectable, s.Hour)
		}
	}
	return SlotsResponse{
		SlotBoard:  board,
		Features:   f,
		HourlyRate: domain.HourlyRate(f, board.Pricing),
		Selectable: selectable,
	}
}

func parseFeatures(c *fiber.Ctx) domain.Features {
	return domain.Features{Covered: c.QueryBool("covered", false), Charging: c.QueryBool("charging", false)}
}

func parseVehicleType(raw string) (domain.VehicleCategory, error) {
	if raw == "" {
		return domain.VehicleCar, nil
	}
	return domain.ParseVehicleCategory(strings.ToLower(raw))
}

// SlotsHandler returns the hourly availability of a location.
func SlotsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		locationID := c.Params("id")
		date := c.Query("date", deps.Availability.Today())
		vtRaw := c.Query("vehicle_type", c.Query("vehicleType"))
		vt, err := parseVehicleType(vtRaw)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if _, err := deps.Availability.ParseDate(date); err != nil {
			return errBadRequest(c, err.Error())
		}
		f := parseFeatures(c)

		board, err := deps.Availability.LoadSlots(c.UserContext(), locationID, date, vt)
		if err != nil {
			return writeError(c, err)
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(annotateSlots(board, f))
	}
}

// quoteRequest is the body of POST /v1/quotes and POST /v1/bookings.
type quoteRequest struct {
	LocationID  string `json:"locationId"`
	Date        string `json:"date"`
	VehicleType string `json:"vehicleType"`
	VehicleID   string `json:"vehicleId"`
	Hours       []int  `json:"hours"`
	Covered     bool   `json:"covered"`
	Charging    bool   `json:"charging"`
}

func (r quoteRequest) features() domain.Features {
	return domain.Features{Covered: r.Covered, Charging: r.Charging}
}

// QuoteHandler prices a selection without booking it.
func QuoteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req quoteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.LocationID == "" {
			return errBadRequest(c, "locationId is required")
		}
		vt, err := parseVehicleType(req.VehicleType)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if _, err := deps.Availability.ParseDate(req.Date); err != nil {
			return errBadRequest(c, err.Error())
		}

		q, err := deps.Bookings.Quote(c.UserContext(), usecases.QuoteInput{
			LocationID:  req.LocationID,
			Date:        req.Date,
			VehicleType: vt,
			Hours:       req.Hours,
			Features:    req.features(),
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(q)
	}
}

// CreateBookingHandler validates and submits a booking.
func CreateBookingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req quoteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.LocationID == "" {
			return errBadRequest(c, "locationId is required")
		}
		if _, err := deps.Availability.ParseDate(req.Date); err != nil {
			return errBadRequest(c, err.Error())
		}

		booking, err := deps.Bookings.Submit(c.UserContext(), usecases.SubmitBookingInput{
			UserID:     subject(c),
			LocationID: req.LocationID,
			Date:       req.Date,
			VehicleID:  req.VehicleID,
			Hours:      req.Hours,
			Features:   req.features(),
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(booking)
	}
}

// ListVehiclesHandler returns the caller's vehicles.
func ListVehiclesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vehicles, err := deps.Bookings.ListVehicles(c.UserContext())
		if err != nil {
			return writeError(c, err)
		}
		if vehicles == nil {
			vehicles = []domain.Vehicle{}
		}
		return c.JSON(fiber.Map{"vehicles": vehicles})
	}
}

// ListAttemptsHandler pages through the caller's booking attempts.
func ListAttemptsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := subject(c)
		if userID == "" {
			return errUnauthorized(c, "token carries no user id")
		}

		pg := parsePagination(c)
		attempts, total, err := deps.Bookings.Attempts(c.UserContext(), userID, pg.Offset, pg.Limit)
		if err != nil {
			return writeError(c, err)
		}
		pg.Total = total
		return paginated(c, attempts, pg)
	}
}

// UpdatePricingHandler changes the caller's rates.
func UpdatePricingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var p domain.PricingInfo
		if err := c.BodyParser(&p); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if err := deps.Hosts.UpdatePricing(c.UserContext(), subject(c), p); err != nil {
			return writeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// UpdateListingHandler changes one of the caller's car or bike listings.
func UpdateListingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var u domain.ListingUpdate
		if err := c.BodyParser(&u); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		err := deps.Hosts.UpdateListing(c.UserContext(), subject(c), c.Params("kind"), c.Params("id"), u)
		if err != nil {
			return writeError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
