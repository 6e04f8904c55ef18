package database

import (
	"log"
	"os"

	"tirestock-backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect() (*gorm.DB, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=tirestock port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Promotion{},
		&models.Tire{},
		&models.Wheel{},
		&models.SparePartCategory{},
		&models.SparePart{},
		&models.Barcode{},
		&models.SalesChannel{},
		&models.OnlinePlatform{},
		&models.WholesaleCustomer{},
		&models.CommissionProgram{},
		&models.Reconciliation{},
		&models.Notification{},
		&models.ActivityLog{},
		&models.Announcement{},
		&models.Feedback{},
		&models.Setting{},
		&models.BrandLeadTime{},
		&models.AnalysisIgnore{},
	); err != nil {
		return err
	}

	// The three movement ledgers share one row shape but live in separate
	// tables, one per item kind.
	for _, kind := range models.AllKinds {
		if err := db.Table(models.MovementTable(kind)).AutoMigrate(&models.StockMovement{}); err != nil {
			return err
		}
	}

	return nil
}

// SeedChannels creates the canonical sales channels and a starter set of
// online platforms. The movement rules key off the channel names, so these
// rows must exist before any movement is recorded.
func SeedChannels(db *gorm.DB) error {
	channels := []models.SalesChannel{
		{Name: models.ChannelReceivePurchase, DisplayName: "รับเข้า (ซื้อ)"},
		{Name: models.ChannelReceiveReturn, DisplayName: "รับคืน"},
		{Name: models.ChannelStorefrontRetail, DisplayName: "หน้าร้าน (ปลีก)"},
		{Name: models.ChannelStorefrontWholesale, DisplayName: "หน้าร้าน (ส่ง)"},
		{Name: models.ChannelOnline, DisplayName: "ออนไลน์"},
	}
	for _, ch := range channels {
		var existing models.SalesChannel
		if err := db.Where("name = ?", ch.Name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := db.Create(&ch).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	platforms := []string{"Shopee", "Lazada", "Facebook", "LINE"}
	for _, name := range platforms {
		var existing models.OnlinePlatform
		if err := db.Where("name = ?", name).First(&existing).Error; err == gorm.ErrRecordNotFound {
			if err := db.Create(&models.OnlinePlatform{Name: name}).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}

	return nil
}

func CreateDefaultAdmin(db *gorm.DB) error {
	adminUsername := os.Getenv("ADMIN_USERNAME")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminUsername == "" || adminPassword == "" {
		log.Println("ADMIN_USERNAME or ADMIN_PASSWORD not set, skipping default admin creation")
		return nil
	}

	var existing models.User
	if err := db.Where("username = ?", adminUsername).First(&existing).Error; err == nil {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username: adminUsername,
		Password: string(hashed),
		Name:     "Administrator",
		Role:     "admin",
		IsActive: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user %q", adminUsername)
	return nil
}
