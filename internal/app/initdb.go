package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/ummitifli/storefront/internal/domain"
	"github.com/ummitifli/storefront/internal/store"
)

func defaultProducts() []domain.ProductInput {
	return []domain.ProductInput{
		{
			Name:          "حقيبة مستلزمات الولادة",
			Description:   domain.StringPtr("حقيبة متكاملة لتجهيزات المستشفى للأم والمولود"),
			Price:         189,
			OriginalPrice: domain.Float64Ptr(229),
			Category:      "مستلزمات الولادة",
			InStock:       true,
		},
		{
			Name:        "وسادة الحمل المريحة",
			Description: domain.StringPtr("وسادة على شكل حرف U لدعم الظهر والبطن"),
			Price:       145,
			Category:    "مستلزمات الحمل",
			InStock:     true,
		},
		{
			Name:          "طقم ملابس قطني للمواليد",
			Description:   domain.StringPtr("خمس قطع من القطن العضوي الناعم"),
			Price:         79.5,
			OriginalPrice: domain.Float64Ptr(99),
			Category:      "ملابس المواليد",
			InStock:       true,
		},
		{
			Name:        "عربة أطفال قابلة للطي",
			Description: domain.StringPtr("عربة خفيفة بمظلة وسلة تخزين"),
			Price:       899,
			Category:    "عربات الأطفال",
			InStock:     false,
		},
		{
			Name:        "شامبو لطيف للأطفال",
			Description: domain.StringPtr("خالٍ من الدموع والعطور"),
			Price:       24.75,
			Category:    "العناية بالطفل",
			InStock:     true,
		},
		{
			Name:          "سرير أطفال خشبي",
			Description:   domain.StringPtr("سرير من خشب الزان مع مرتبة"),
			Price:         1150,
			OriginalPrice: domain.Float64Ptr(1300),
			Category:      "أثاث الأطفال",
			InStock:       true,
		},
	}
}

// checkProducts seeds the default products into an empty local store. The
// hosted rest backend is never seeded.
func (a *Application) checkProducts() {
	if a.appConfig.Database.Type == "rest" {
		return
	}
	ctx := context.Background()
	rows, err := a.store.List(ctx, store.Query{})
	if err != nil {
		zap.L().Error("failed to query products", zap.Error(err))
		return
	}
	if len(rows) > 0 {
		return
	}
	for _, p := range defaultProducts() {
		if _, err := a.store.Insert(ctx, p); err != nil {
			zap.L().Error("failed to create default product", zap.String("name", p.Name), zap.Error(err))
		} else {
			zap.L().Info("initialized default product", zap.String("name", p.Name))
		}
	}
}
