package weather

import (
	"context"

	"github.com/woodlandhills/snowcam/model"
)

type IService interface {
	// Current never fails: on any upstream problem it returns the fixed
	// fallback snapshot so weather absence cannot stall analysis.
	Current(ctx context.Context, lat, lon float64) model.WeatherSnapshot
}
