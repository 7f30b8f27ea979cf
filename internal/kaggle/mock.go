package kaggle

import "github.com/raphaelgruber/kagglementor/internal/models"

// MockCompetitions returns the fixed fallback listing used when the upstream
// API is unavailable. Results carrying this data are marked Degraded and are
// never written to the persistent cache.
func MockCompetitions() []models.Competition {
	return []models.Competition{
		{
			ID:     "titanic",
			Title:  "Titanic: Machine Learning from Disaster",
			URL:    "https://www.kaggle.com/c/titanic",
			Prize:  "Knowledge",
			Status: models.CompetitionStatusActive,
		},
		{
			ID:     "house-prices-advanced-regression-techniques",
			Title:  "House Prices: Advanced Regression Techniques",
			URL:    "https://www.kaggle.com/c/house-prices-advanced-regression-techniques",
			Prize:  "$25,000",
			Status: models.CompetitionStatusActive,
		},
		{
			ID:     "spaceship-titanic",
			Title:  "Spaceship Titanic",
			URL:    "https://www.kaggle.com/c/spaceship-titanic",
			Prize:  "Knowledge",
			Status: models.CompetitionStatusActive,
		},
		{
			ID:     "digit-recognizer",
			Title:  "Digit Recognizer",
			URL:    "https://www.kaggle.com/c/digit-recognizer",
			Prize:  "Knowledge",
			Status: models.CompetitionStatusActive,
		},
		{
			ID:     "store-sales-time-series-forecasting",
			Title:  "Store Sales - Time Series Forecasting",
			URL:    "https://www.kaggle.com/c/store-sales-time-series-forecasting",
			Prize:  "$10,000",
			Status: models.CompetitionStatusActive,
		},
	}
}
