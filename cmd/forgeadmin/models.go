package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	admin "github.com/saritasa-nest/saritasa-forge-admin-sub001"
)

// Address is a postal address shared by shops.
type Address struct {
	ID     int
	Street string `admin:"search=contains"`
	City   string `admin:"search=contains,order=1"`
}

// Shop is a retail location.
type Shop struct {
	ID        int
	Name      string   `admin:"order=1,required,maxlength=80,search=contains"`
	Code      string   `admin:"order=2,search=starts-with,pattern=^[A-Z]{2}-[0-9]+$"`
	AddressID *int     `admin:"hidden-list"`
	Address   *Address `admin:"search=contains"`
	Products  []Product
	OpenedAt  time.Time `admin:"format=2006-01-02,empty=-"`
}

func (Shop) AdminEntity() admin.EntityAttributes {
	return admin.EntityAttributes{Group: "Retail", Description: "Shops and their locations", Include: true}
}

// Product is an item sold by a shop.
type Product struct {
	ID     int
	Name   string          `admin:"order=1,required,search=contains"`
	Sku    string          `admin:"display=SKU,search=exact"`
	Price  decimal.Decimal `admin:"format=%.2f,min=0"`
	Stock  int             `admin:"min=0"`
	ShopID int             `admin:"hidden-list"`
	Shop   *Shop           `admin:"search=contains"`
}

func (Product) AdminEntity() admin.EntityAttributes {
	return admin.EntityAttributes{Group: "Retail", Include: true}
}

// Department groups employees.
type Department struct {
	ID        int
	Name      string `admin:"required,search=contains"`
	Employees []Employee
}

func (Department) AdminEntity() admin.EntityAttributes {
	return admin.EntityAttributes{Group: "People", Include: true}
}

// Employee works in a department.
type Employee struct {
	ID           int
	FirstName    string `admin:"order=1,required,search=contains"`
	LastName     string `admin:"order=2,required,search=contains"`
	Email        string `admin:"search=exact,pattern=^[^@ ]+@[^@ ]+$"`
	DepartmentID *int
	Department   *Department `admin:"search=contains"`
	FullName     string      `gorm:"-" admin:"calculated,display=Full name"`
}

func (Employee) AdminEntity() admin.EntityAttributes {
	return admin.EntityAttributes{Group: "People", Include: true}
}

// AfterFind fills the calculated full name.
func (e *Employee) AfterFind(*gorm.DB) error {
	e.FullName = strings.TrimSpace(e.FirstName + " " + e.LastName)
	return nil
}

func sampleModels() []any {
	return []any{&Shop{}, &Product{}, &Employee{}}
}

// sampleOptions layers host options over the tags of the sample models.
func sampleOptions(policy admin.AllowListPolicy) *admin.Options {
	return admin.NewOptionsBuilder().
		SetAllowListPolicy(policy).
		AddGroup("Retail", "Shops, products and stock").
		AddGroup("People", "Staff directory").
		ConfigureEntity(Product{}, func(e *admin.EntityOptionsBuilder) {
			e.SetPluralName("Catalog items").
				SetSearchFunction(func(_ context.Context, db *gorm.DB, _ string) *gorm.DB {
					return db.Where("stock > ?", 0)
				}).
				ConfigureProperty("Stock", func(p *admin.PropertyOptionsBuilder) {
					p.SetDisplayName("In stock")
				})
		}).
		ConfigureEntity(Address{}, func(e *admin.EntityOptionsBuilder) {
			e.SetIsHidden(true)
		}).
		Options()
}

func seedSampleData(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&Address{}, &Shop{}, &Product{}, &Department{}, &Employee{}); err != nil {
		return fmt.Errorf("failed to migrate sample schema: %w", err)
	}

	var count int64
	if err := db.WithContext(ctx).Model(&Shop{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		opened := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
		shops := []Shop{
			{ID: 1, Name: "Acme Hardware", Code: "AC-1", Address: &Address{ID: 1, Street: "1 Main St", City: "Springfield"}, OpenedAt: opened},
			{ID: 2, Name: "Corner Tools", Code: "CT-7", Address: &Address{ID: 2, Street: "42 Elm Rd", City: "Shelbyville"}},
		}
		if err := tx.Create(&shops).Error; err != nil {
			return err
		}
		products := []Product{
			{ID: 1, Name: "Claw hammer", Sku: "HAM-1", Price: decimal.RequireFromString("12.50"), Stock: 14, ShopID: 1},
			{ID: 2, Name: "Socket wrench", Sku: "WR-10", Price: decimal.RequireFromString("24.00"), Stock: 3, ShopID: 1},
			{ID: 3, Name: "Tape measure", Sku: "TM-5", Price: decimal.RequireFromString("7.99"), Stock: 40, ShopID: 2},
		}
		if err := tx.Create(&products).Error; err != nil {
			return err
		}
		departments := []Department{
			{ID: 1, Name: "Sales", Employees: []Employee{
				{ID: 1, FirstName: "Ada", LastName: "Park", Email: "ada@example.com"},
				{ID: 2, FirstName: "Sam", LastName: "Reyes", Email: "sam@example.com"},
			}},
			{ID: 2, Name: "Warehouse", Employees: []Employee{
				{ID: 3, FirstName: "Lee", LastName: "Novak", Email: "lee@example.com"},
			}},
		}
		return tx.Create(&departments).Error
	})
}
