package domain

// AllCategories is the synthetic "all products" selection. It is never stored
// as a product category.
const AllCategories = "جميع المنتجات"

// Categories is the fixed label set offered by the admin form, in display order.
var Categories = []string{
	"مستلزمات الحمل",
	"مستلزمات الولادة",
	"ملابس المواليد",
	"عربات الأطفال",
	"العناية بالطفل",
	"أثاث الأطفال",
}

// IsKnownCategory reports whether c belongs to the fixed label set.
func IsKnownCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}
