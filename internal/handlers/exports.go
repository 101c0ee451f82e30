package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/haulops-platform/api/internal/audit"
	"github.com/haulops-platform/api/internal/httpx"
	"github.com/haulops-platform/api/internal/middleware"
)

func (s *Server) GetExportsCustomersCsv(w http.ResponseWriter, r *http.Request) {
	s.writeExportCSV(w, r, "customers", "customers.csv", func(writer *csv.Writer, tenantID uuid.UUID) error {
		rows, err := s.Store.ListCustomers(r.Context(), tenantID)
		if err != nil {
			return err
		}
		_ = writer.Write([]string{"id", "customer_number", "name", "type", "address", "city", "state", "zip", "phone", "email", "billing_emails", "credit_rate", "notes", "created_at", "updated_at"})
		for _, row := range rows {
			creditRate := ""
			if row.CreditRate != nil {
				creditRate = strconv.FormatFloat(*row.CreditRate, 'f', -1, 64)
			}
			_ = writer.Write([]string{
				row.ID.String(),
				row.CustomerNumber,
				row.Name,
				string(row.Type),
				row.Address,
				row.City,
				row.State,
				row.Zip,
				row.Phone,
				row.Email,
				row.BillingEmails,
				creditRate,
				row.Notes,
				row.CreatedAt.UTC().Format(time.RFC3339),
				row.UpdatedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil
	})
}

func (s *Server) GetExportsDriversCsv(w http.ResponseWriter, r *http.Request) {
	s.writeExportCSV(w, r, "drivers", "drivers.csv", func(writer *csv.Writer, tenantID uuid.UUID) error {
		rows, err := s.Store.ListDrivers(r.Context(), tenantID)
		if err != nil {
			return err
		}
		_ = writer.Write([]string{"id", "driver_number", "first_name", "last_name", "email", "phone", "type", "status", "license_number", "license_state", "license_expiry", "medical_card_expiry", "pay_rate", "address", "city", "state", "zip", "created_at", "updated_at"})
		for _, row := range rows {
			_ = writer.Write([]string{
				row.ID.String(),
				row.DriverNumber,
				row.FirstName,
				row.LastName,
				row.Email,
				row.Phone,
				string(row.Type),
				string(row.Status),
				row.LicenseNumber,
				row.LicenseState,
				formatDateCSV(row.LicenseExpiry),
				formatDateCSV(row.MedicalCardExpiry),
				strconv.FormatFloat(row.PayRate, 'f', 2, 64),
				row.Address,
				row.City,
				row.State,
				row.Zip,
				row.CreatedAt.UTC().Format(time.RFC3339),
				row.UpdatedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil
	})
}

func (s *Server) GetExportsTrucksCsv(w http.ResponseWriter, r *http.Request) {
	s.writeExportCSV(w, r, "trucks", "trucks.csv", func(writer *csv.Writer, tenantID uuid.UUID) error {
		rows, err := s.Store.ListTrucks(r.Context(), tenantID)
		if err != nil {
			return err
		}
		_ = writer.Write([]string{"id", "truck_number", "vin", "make", "model", "year", "license_plate", "state", "equipment", "capacity_lbs", "status", "registration_expiry", "inspection_expiry", "created_at", "updated_at"})
		for _, row := range rows {
			year := ""
			if row.Year > 0 {
				year = strconv.Itoa(row.Year)
			}
			_ = writer.Write([]string{
				row.ID.String(),
				row.TruckNumber,
				row.VIN,
				row.Make,
				row.Model,
				year,
				row.LicensePlate,
				row.State,
				string(row.Equipment),
				strconv.Itoa(row.CapacityLbs),
				row.Status,
				formatDateCSV(row.RegistrationExpiry),
				formatDateCSV(row.InspectionExpiry),
				row.CreatedAt.UTC().Format(time.RFC3339),
				row.UpdatedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil
	})
}

func (s *Server) GetExportsLoadsCsv(w http.ResponseWriter, r *http.Request) {
	s.writeExportCSV(w, r, "loads", "loads.csv", func(writer *csv.Writer, tenantID uuid.UUID) error {
		rows, err := s.Store.ListLoads(r.Context(), tenantID)
		if err != nil {
			return err
		}
		_ = writer.Write([]string{"id", "load_number", "customer_id", "driver_id", "status", "equipment", "revenue", "driver_pay", "profit", "revenue_per_mile", "total_miles", "loaded_miles", "empty_miles", "weight_lbs", "commodity", "reference_number", "pickup_address", "pickup_city", "pickup_state", "pickup_zip", "pickup_date", "delivery_address", "delivery_city", "delivery_state", "delivery_zip", "delivery_date", "notes", "created_at", "updated_at"})
		for _, row := range rows {
			driverID := ""
			if row.DriverID != nil {
				driverID = row.DriverID.String()
			}
			_ = writer.Write([]string{
				row.ID.String(),
				row.LoadNumber,
				row.CustomerID.String(),
				driverID,
				string(row.Status),
				string(row.Equipment),
				formatMoneyCSV(row.Revenue),
				formatMoneyCSV(row.DriverPay),
				formatMoneyCSV(row.Profit),
				formatMoneyCSV(row.RevenuePerMile),
				strconv.FormatFloat(row.TotalMiles, 'f', -1, 64),
				strconv.FormatFloat(row.LoadedMiles, 'f', -1, 64),
				strconv.FormatFloat(row.EmptyMiles, 'f', -1, 64),
				strconv.FormatFloat(row.WeightLbs, 'f', -1, 64),
				row.Commodity,
				row.ReferenceNumber,
				row.PickupAddress,
				row.PickupCity,
				row.PickupState,
				row.PickupZip,
				formatDateCSV(row.PickupDate),
				row.DeliveryAddress,
				row.DeliveryCity,
				row.DeliveryState,
				row.DeliveryZip,
				formatDateCSV(row.DeliveryDate),
				row.Notes,
				row.CreatedAt.UTC().Format(time.RFC3339),
				row.UpdatedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil
	})
}

func (s *Server) writeExportCSV(w http.ResponseWriter, r *http.Request, entityType, filename string, writerFunc func(writer *csv.Writer, tenantID uuid.UUID) error) {
	_, tenantID, userID, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	writer := csv.NewWriter(w)
	if err := writerFunc(writer, tenantID); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to generate export CSV", nil)
		return
	}
	writer.Flush()
	if writer.Error() != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "internal_error", "Failed to stream export CSV", nil)
		return
	}

	_ = s.Audit.Log(r.Context(), audit.Entry{
		TenantID:   tenantID,
		UserID:     &userID,
		Action:     "export.download",
		EntityType: entityType,
		RequestID:  middleware.RequestIDFromContext(r.Context()),
		Metadata: map[string]any{
			"filename": filename,
			"entity":   entityType,
		},
	})
}

func formatDateCSV(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func formatMoneyCSV(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
