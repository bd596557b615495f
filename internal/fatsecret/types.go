package fatsecret

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexFloat decodes a JSON number that the API may send either as a bare
// number or as a quoted string ("100.000"). Empty strings decode to zero.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", str, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// Float64 returns the value as a plain float64.
func (f FlexFloat) Float64() float64 {
	return float64(f)
}

// Food is a single search result.
type Food struct {
	FoodID          string `json:"food_id"`
	FoodName        string `json:"food_name"`
	FoodType        string `json:"food_type"`
	BrandName       string `json:"brand_name"`
	FoodDescription string `json:"food_description"`
}

// FoodList decodes the API's object-or-list quirk: a single-element result
// arrives as a bare object, multiple results as an array.
type FoodList []Food

// UnmarshalJSON implements json.Unmarshaler.
func (l *FoodList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var foods []Food
		if err := json.Unmarshal(data, &foods); err != nil {
			return err
		}
		*l = foods
		return nil
	}
	var one Food
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = []Food{one}
	return nil
}

// Serving is one serving entry of a food record.
type Serving struct {
	ServingID           string    `json:"serving_id"`
	ServingDescription  string    `json:"serving_description"`
	MetricServingAmount FlexFloat `json:"metric_serving_amount"`
	MetricServingUnit   string    `json:"metric_serving_unit"`
	Calories            FlexFloat `json:"calories"`
	Carbohydrate        FlexFloat `json:"carbohydrate"`
	Protein             FlexFloat `json:"protein"`
	Fat                 FlexFloat `json:"fat"`
	Sugar               FlexFloat `json:"sugar"`
	Sodium              FlexFloat `json:"sodium"`
}

// ServingList decodes the same object-or-list quirk for servings.
type ServingList []Serving

// UnmarshalJSON implements json.Unmarshaler.
func (l *ServingList) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = nil
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var servings []Serving
		if err := json.Unmarshal(data, &servings); err != nil {
			return err
		}
		*l = servings
		return nil
	}
	var one Serving
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = []Serving{one}
	return nil
}

// FoodDetail is a full food record with its servings.
type FoodDetail struct {
	FoodID   string `json:"food_id"`
	FoodName string `json:"food_name"`
	FoodType string `json:"food_type"`
	Servings struct {
		Serving ServingList `json:"serving"`
	} `json:"servings"`
}

// apiError is the error envelope the API returns with HTTP 200.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("fatsecret api error %d: %s", e.Code, e.Message)
}

// searchResponse wraps a foods.search result.
type searchResponse struct {
	Foods struct {
		Food         FoodList  `json:"food"`
		MaxResults   FlexFloat `json:"max_results"`
		PageNumber   FlexFloat `json:"page_number"`
		TotalResults FlexFloat `json:"total_results"`
	} `json:"foods"`
	Error *apiError `json:"error"`
}

// getResponse wraps a food.get.v2 result.
type getResponse struct {
	Food  *FoodDetail `json:"food"`
	Error *apiError   `json:"error"`
}
