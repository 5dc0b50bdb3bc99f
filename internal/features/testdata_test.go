package features

import (
	"strings"
	"testing"

	"github.com/kartoza/car-estimator/internal/dataset"
)

// estimacarCSV mirrors the layout of the training export, including the
// blank and duplicated header columns.
const estimacarCSV = `Car_Id;SerialNumber;Brand;Model;Driven_KM;Type;EngineV;FuelType;Safety_Features;Region;Year;Transmission;Accident_History;Condition;Color;Condition_Score;;Transmission;Car_Age;Entertainment_Features;Sold_Price;Price_Category
1;SN1;Toyota;Corolla;50000;Sedan;1.6;Petrol;ABS, Airbags;Tunis;2018;Automatic;No;Good;White;8;;Automatic;6;Radio;45000;medium
2;SN2;BMW;X3;80000;SUV;2.0;Diesel;ABS, ESP;Sfax;2016;Manual;Yes;Fair;Black;6;;Manual;8;GPS;60000;high
3;SN3;Kia;Picanto;120000;Hatchback;1.0;Petrol;ABS;Sousse;2012;Manual;No;Poor;Red;4;;Manual;12;Radio;15000;low
4;SN4;Renault;Clio;30000;Hatchback;1.2;Hybrid;Airbags;Tunis;2020;Automatic;No;Good;Blue;9;;Automatic;4;Bluetooth;32000;medium
`

var expectedColumns = []string{
	"Driven_KM", "EngineV", "Year",
	"Brand_Kia", "Brand_Renault", "Brand_Toyota",
	"Model_Corolla", "Model_Picanto", "Model_X3",
	"Type_SUV", "Type_Sedan",
	"FuelType_Hybrid", "FuelType_Petrol",
	"Safety_Features_ABS, Airbags", "Safety_Features_ABS, ESP", "Safety_Features_Airbags",
	"Region_Sousse", "Region_Tunis",
	"Transmission_Manual",
	"Accident_History_Yes",
}

func testOptions() SchemaOptions {
	return SchemaOptions{
		Exclude: []string{
			"Car_Id", "SerialNumber", "Unnamed: 16", "Transmission.1",
			"Condition", "Color", "Condition_Score", "Car_Age",
			"Entertainment_Features", "Sold_Price",
		},
		Categorical: []string{
			"Brand", "Model", "Type", "FuelType", "Safety_Features",
			"Region", "Transmission", "Accident_History",
		},
		Target: "Price_Category",
	}
}

func testTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.ReadCSV(strings.NewReader(estimacarCSV), ';')
	if err != nil {
		t.Fatalf("Failed to read test dataset: %v", err)
	}
	return table
}

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := BuildSchema(testTable(t), testOptions())
	if err != nil {
		t.Fatalf("BuildSchema failed: %v", err)
	}
	return s
}

func corollaRecord() Record {
	return Record{
		"Brand":            "Toyota",
		"Model":            "Corolla",
		"Driven_KM":        50000,
		"Type":             "Sedan",
		"EngineV":          1.6,
		"FuelType":         "Petrol",
		"Safety_Features":  []string{"ABS", "Airbags"},
		"Region":           "Tunis",
		"Year":             2018,
		"Transmission":     "Automatic",
		"Accident_History": "No",
	}
}
