package directory

import (
	"time"

	"github.com/plumline/gatekeeper/internal/authz"
)

// SeedDemoData loads the demo inventory and a few subjects so a development
// deployment is explorable out of the box.
func SeedDemoData(d *Directory) error {
	day := func(s string) time.Time {
		t, _ := time.Parse("2006-01-02", s)
		return t
	}

	resources := []authz.Resource{
		{ID: "1", Name: "Dell Latitude 7420", Category: "Laptop", Quantity: 25, Sensitivity: authz.SensitivityInternal, Department: authz.DeptIT, LastUpdated: day("2024-01-15")},
		{ID: "2", Name: `MacBook Pro 16"`, Category: "Laptop", Quantity: 15, Sensitivity: authz.SensitivityInternal, Department: authz.DeptIT, LastUpdated: day("2024-01-14")},
		{ID: "3", Name: "Cisco Router 2900", Category: "Network", Quantity: 8, Sensitivity: authz.SensitivityConfidential, Department: authz.DeptIT, LastUpdated: day("2024-01-10")},
		{ID: "4", Name: "Office Supplies Budget", Category: "Budget", Quantity: 1, Sensitivity: authz.SensitivityInternal, Department: authz.DeptFinance, LastUpdated: day("2024-01-12")},
		{ID: "5", Name: "Annual Revenue Report", Category: "Document", Quantity: 1, Sensitivity: authz.SensitivityConfidential, Department: authz.DeptFinance, LastUpdated: day("2024-01-08")},
		{ID: "6", Name: "Marketing Campaign Fund", Category: "Budget", Quantity: 1, Sensitivity: authz.SensitivityInternal, Department: authz.DeptFinance, LastUpdated: day("2024-01-05")},
	}

	subjects := []authz.Subject{
		{ID: "user123", Name: "John Smith", Department: authz.DeptIT},
		{ID: "user456", Name: "Sarah Johnson", Department: authz.DeptIT},
		{ID: "user789", Name: "Mike Chen", Department: authz.DeptIT, Role: "manager"},
		{ID: "user234", Name: "Emily Davis", Department: authz.DeptFinance},
	}

	for _, r := range resources {
		if err := d.PutResource(r); err != nil {
			return err
		}
	}
	for _, s := range subjects {
		if err := d.PutSubject(s); err != nil {
			return err
		}
	}
	return nil
}
