package handler

import (
	"net/http"

	"github.com/solarroi/solarroi/internal/api/models"
	"github.com/solarroi/solarroi/internal/api/response"
)

var glossary = models.GlossaryResponse{
	Terms: []models.GlossaryTerm{
		{Term: "kW", Meaning: "kW (kilowatt) is your system power capacity. Higher kW means panels can produce more power at a time."},
		{Term: "On-grid", Meaning: "On-grid means your solar system is connected to the electricity grid and can use grid power when solar is low."},
		{Term: "ROI", Meaning: "ROI is how much money you gain back over time compared to what you invest in solar."},
	},
}

// Glossary handles GET /v1/glossary.
func Glossary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=86400")
	response.JSON(w, r, http.StatusOK, glossary)
}
