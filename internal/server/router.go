package server

import (
	"context"
	"net/http"

	"platecost/internal/handlers"
	applog "platecost/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	routes := []struct {
		path    string
		handler http.HandlerFunc
	}{
		{"/healthz", handlers.Health},
		{"/app/api/ingredients", handlers.IngredientResource},
		{"/app/api/ingredients/", handlers.IngredientResource},
		{"/app/api/dishes", handlers.DishResource},
		{"/app/api/dishes/", handlers.DishResource},
		{"/app/api/foods", handlers.FoodResource},
		{"/app/api/foods/", handlers.FoodResource},
		{"/app/api/compare", handlers.Compare},
		{"/app/api/builders/", handlers.BuilderResource},
	}

	applog.Debug(context.Background(), "registering http routes")
	for _, route := range routes {
		mux.HandleFunc(route.path, route.handler)
		applog.Debug(context.Background(), "route registered", "path", route.path)
	}
	return mux
}
