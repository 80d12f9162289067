package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/primeapparel/marketplace-backend/config"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

// Usage: go run ./cmd/seed -file catalog.xlsx -owner seller@example.com
func main() {
	filePath := flag.String("file", "", "path to the .xlsx catalog")
	ownerEmail := flag.String("owner", "", "email of the seller or admin who will own the products")
	batchSize := flag.Int("batch", 500, "insert batch size")
	assumeYes := flag.Bool("yes", false, "import without asking for confirmation")
	flag.Parse()

	if *filePath == "" || *ownerEmail == "" {
		flag.Usage()
		log.Fatal("both -file and -owner are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())

	owner, err := userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(*ownerEmail)))
	if err != nil {
		log.Fatalf("Owner %s not found: %v", *ownerEmail, err)
	}
	if owner.Role != model.RoleSeller && owner.Role != model.RoleAdmin {
		log.Fatalf("Owner %s is a %s; products need a seller or admin owner", owner.Email, owner.Role)
	}

	fmt.Printf("Reading XLSX file: %s\n", *filePath)
	products, err := readProductsFromXLSX(*filePath, owner.ID)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	fmt.Printf("Total products to import: %d\n", len(products))
	if len(products) == 0 {
		return
	}

	if !*assumeYes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	fmt.Printf("Starting bulk import with batch size: %d\n", *batchSize)
	if err := productRepo.BulkCreate(products, *batchSize); err != nil {
		log.Fatal("Failed to bulk create products:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total products imported: %d\n", len(products))
}

// catalogColumns are the recognised header names; others are ignored.
var catalogColumns = []string{"name", "category", "sub_category", "description", "moq", "material", "lead_time", "price"}

func readProductsFromXLSX(filePath string, ownerID uint) ([]model.Product, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}
	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return parseCatalogRows(rows, ownerID)
}

// parseCatalogRows maps spreadsheet rows onto products using the header
// row for column positions. Rows without a name are skipped.
func parseCatalogRows(rows [][]string, ownerID uint) ([]model.Product, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	index := make(map[string]int)
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, fmt.Errorf("header row has no %q column (expected %s)", "name", strings.Join(catalogColumns, ", "))
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var products []model.Product
	skipped := 0
	seen := make(map[string]bool)
	for n, row := range rows[1:] {
		name := cell(row, "name")
		if name == "" {
			skipped++
			continue
		}
		key := strings.ToLower(name + "|" + cell(row, "category") + "|" + cell(row, "sub_category"))
		if seen[key] {
			skipped++
			continue
		}
		seen[key] = true

		moq := 1
		if v := cell(row, "moq"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 {
				fmt.Printf("Row %d: invalid moq %q, skipping\n", n+2, v)
				skipped++
				continue
			}
			moq = parsed
		}

		owner := ownerID
		p := model.Product{
			Name:        name,
			Category:    cell(row, "category"),
			SubCategory: cell(row, "sub_category"),
			Description: cell(row, "description"),
			MOQ:         moq,
			Material:    cell(row, "material"),
			LeadTime:    cell(row, "lead_time"),
			OwnerID:     &owner,
		}
		if v := cell(row, "price"); v != "" {
			price, err := strconv.ParseFloat(strings.TrimPrefix(v, "$"), 64)
			if err != nil {
				fmt.Printf("Row %d: invalid price %q, skipping\n", n+2, v)
				skipped++
				continue
			}
			p.PriceTiers = []model.PriceTier{{MinQuantity: moq, Price: price}}
		}
		products = append(products, p)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", len(rows)-1)
	fmt.Printf("  Valid products: %d\n", len(products))
	fmt.Printf("  Skipped rows: %d\n", skipped)
	return products, nil
}
