package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/fmanana/autosense-backend/internal/observability/metrics"
	stations "github.com/fmanana/autosense-backend/internal/stations/domain"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
	formatPDF  = "pdf"
)

var exportContentTypes = map[string]string{
	formatCSV:  "text/csv; charset=utf-8",
	formatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	formatPDF:  "application/pdf",
}

var pumpColumns = []string{"station_id", "id_name", "name", "city", "pump_id", "fuel_type", "price", "available"}

func (h *Handler) export(c *gin.Context) {
	format := strings.ToLower(c.Param("format"))
	contentType, ok := exportContentTypes[format]
	if !ok {
		metrics.IncExport(format, metrics.ResultInvalid)
		writeMessage(c, http.StatusBadRequest, "Unsupported export format: "+c.Param("format"))
		return
	}

	list, err := h.service.List(c.Request.Context())
	if err != nil {
		metrics.IncExport(format, metrics.ResultError)
		h.writeError(c, err)
		return
	}

	var data []byte
	switch format {
	case formatCSV:
		data, err = BuildStationsCSV(list)
	case formatXLSX:
		data, err = BuildStationsXLSX(list)
	case formatPDF:
		data, err = BuildStationsPDF(list)
	}
	if err != nil {
		metrics.IncExport(format, metrics.ResultError)
		h.writeError(c, err)
		return
	}
	metrics.IncExport(format, metrics.ResultSuccess)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="stations.%s"`, format))
	c.Data(http.StatusOK, contentType, data)
}

// BuildStationsCSV renders one row per pump. Stations without pumps get a
// single row with empty pump columns.
func BuildStationsCSV(list []stations.Station) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(pumpColumns); err != nil {
		return nil, err
	}
	for _, row := range flatten(list) {
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStationsXLSX renders a stations sheet and a pumps sheet.
func BuildStationsXLSX(list []stations.Station) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	stationsSheet := "stations"
	pumpsSheet := "pumps"
	if err := f.SetSheetName("Sheet1", stationsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(pumpsSheet); err != nil {
		return nil, err
	}

	for i, header := range []string{"ID", "ID Name", "Name", "Latitude", "Longitude", "City", "Address", "Pumps"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(stationsSheet, cell, header)
	}
	for i, header := range []string{"ID", "Station ID", "Fuel Type", "Price", "Available"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(pumpsSheet, cell, header)
	}

	pumpRow := 2
	for i, station := range list {
		row := i + 2
		_ = f.SetCellValue(stationsSheet, fmt.Sprintf("A%d", row), station.ID)
		_ = f.SetCellValue(stationsSheet, fmt.Sprintf("B%d", row), station.IDName)
		_ = f.SetCellValue(stationsSheet, fmt.Sprintf("C%d", row), station.Name)
		_ = f.SetCellValue(stationsSheet, fmt.Sprintf("D%d", row), station.Latitude)
		_ = f.SetCellValue(stationsSheet, fmt.Sprintf("E%d", row), station.Longitude)
		_ = f.SetCellValue(stationsSheet, fmt.Sprintf("F%d", row), station.City)
		_ = f.SetCellValue(stationsSheet, fmt.Sprintf("G%d", row), station.Address)
		_ = f.SetCellValue(stationsSheet, fmt.Sprintf("H%d", row), len(station.Pumps))
		for _, pump := range station.Pumps {
			_ = f.SetCellValue(pumpsSheet, fmt.Sprintf("A%d", pumpRow), pump.ID)
			_ = f.SetCellValue(pumpsSheet, fmt.Sprintf("B%d", pumpRow), pump.StationID)
			_ = f.SetCellValue(pumpsSheet, fmt.Sprintf("C%d", pumpRow), pump.FuelType)
			_ = f.SetCellValue(pumpsSheet, fmt.Sprintf("D%d", pumpRow), pump.Price)
			_ = f.SetCellValue(pumpsSheet, fmt.Sprintf("E%d", pumpRow), pump.Available)
			pumpRow++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildStationsPDF renders a station listing with a pump table per station.
func BuildStationsPDF(list []stations.Station) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Fuel Stations")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Stations: %d", len(list)))
	pdf.Ln(8)

	for _, station := range list {
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, fmt.Sprintf("#%d %s (%s)", station.ID, station.Name, station.IDName))
		pdf.Ln(5)
		pdf.SetFont("Arial", "", 9)
		pdf.Cell(0, 5, fmt.Sprintf("%s, %s  [%.6f, %.6f]", station.Address, station.City, station.Latitude, station.Longitude))
		pdf.Ln(6)
		if len(station.Pumps) == 0 {
			pdf.Cell(0, 5, "No pumps")
			pdf.Ln(8)
			continue
		}

		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(20, 6, "Pump", "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, "Fuel Type", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Price", "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, "Available", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
		for _, pump := range station.Pumps {
			pdf.CellFormat(20, 6, strconv.FormatInt(pump.ID, 10), "1", 0, "C", false, 0, "")
			pdf.CellFormat(50, 6, pump.FuelType, "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, fmt.Sprintf("%.3f", pump.Price), "1", 0, "R", false, 0, "")
			pdf.CellFormat(30, 6, yesNo(pump.Available), "1", 0, "C", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flatten(list []stations.Station) [][]string {
	var rows [][]string
	for _, station := range list {
		prefix := []string{
			strconv.FormatInt(station.ID, 10),
			station.IDName,
			station.Name,
			station.City,
		}
		if len(station.Pumps) == 0 {
			rows = append(rows, append(append([]string{}, prefix...), "", "", "", ""))
			continue
		}
		for _, pump := range station.Pumps {
			rows = append(rows, append(append([]string{}, prefix...),
				strconv.FormatInt(pump.ID, 10),
				pump.FuelType,
				strconv.FormatFloat(pump.Price, 'f', -1, 64),
				strconv.FormatBool(pump.Available),
			))
		}
	}
	return rows
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
