package shopping

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dukerupert/potluck/internal/model"
)

// UncategorizedLabel names the bucket for custom items and products without
// a category.
const UncategorizedLabel = "Pozostałe"

// Mode selects how a list view is grouped.
type Mode string

const (
	ModeCategory Mode = "category"
	ModeProduct  Mode = "product"
	ModeDish     Mode = "dish"
)

// ParseMode maps a query value to a Mode; empty means ModeCategory.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeCategory, nil
	case ModeCategory, ModeProduct, ModeDish:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown grouping %q", s)
}

// ProductGroup is one visible line of the list: all items for a product
// (or, for custom items, a name) that share a checked state.
type ProductGroup struct {
	Key              string  `json:"key"`
	ProductID        *int64  `json:"product_id"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	Amount           float64 `json:"amount"`
	UnitType         string  `json:"unit_type"`
	CustomAmountText string  `json:"custom_amount_text,omitempty"`
	ItemIDs          []int64 `json:"item_ids"`
	AllChecked       bool    `json:"all_checked"`
	AnyChecked       bool    `json:"any_checked"`
}

type CategoryGroup struct {
	Name          string         `json:"name"`
	Uncategorized bool           `json:"uncategorized"`
	Groups        []ProductGroup `json:"groups"`
}

// DishGroup is one (meal, member) generation group. Its items keep their
// individual amounts.
type DishGroup struct {
	model.DishKey
	MealName   string                   `json:"meal_name"`
	MemberName string                   `json:"member_name"`
	Servings   float64                  `json:"servings"`
	Items      []model.ShoppingListItem `json:"items"`
	ItemIDs    []int64                  `json:"item_ids"`
	AllChecked bool                     `json:"all_checked"`
	AnyChecked bool                     `json:"any_checked"`
}

type productKey struct {
	productID int64
	name      string
	checked   bool
}

func keyOf(it model.ShoppingListItem) productKey {
	if it.ProductID != nil {
		return productKey{productID: *it.ProductID, checked: it.IsChecked}
	}
	return productKey{name: strings.ToLower(strings.TrimSpace(it.Name)), checked: it.IsChecked}
}

func (k productKey) String() string {
	state := "unchecked"
	if k.checked {
		state = "checked"
	}
	if k.productID != 0 {
		return fmt.Sprintf("product:%d:%s", k.productID, state)
	}
	return fmt.Sprintf("name:%s:%s", k.name, state)
}

func newCollator() *collate.Collator {
	return collate.New(language.Polish, collate.IgnoreCase)
}

// GroupByProduct merges items by product (or name for custom items),
// keeping checked and unchecked rows apart. Groups are ordered by name in
// Polish collation, unchecked before checked on equal names.
func GroupByProduct(items []model.ShoppingListItem) []ProductGroup {
	groups := make(map[productKey]*ProductGroup)
	totals := make(map[productKey]decimal.Decimal)
	var order []productKey

	for _, it := range items {
		k := keyOf(it)
		g, ok := groups[k]
		if !ok {
			g = &ProductGroup{
				Key:        k.String(),
				ProductID:  it.ProductID,
				Name:       it.Name,
				Category:   it.ProductCategory,
				UnitType:   it.UnitType,
				AllChecked: true,
			}
			groups[k] = g
			order = append(order, k)
		}
		g.ItemIDs = append(g.ItemIDs, it.ID)
		if it.IsCustomText() {
			g.CustomAmountText = joinText(g.CustomAmountText, *it.CustomAmountText)
		} else {
			totals[k] = addAmount(totals[k], it.Amount)
		}
		g.AllChecked = g.AllChecked && it.IsChecked
		g.AnyChecked = g.AnyChecked || it.IsChecked
	}

	out := make([]ProductGroup, 0, len(order))
	for _, k := range order {
		g := groups[k]
		g.Amount = persistable(totals[k])
		out = append(out, *g)
	}

	col := newCollator()
	sort.SliceStable(out, func(i, j int) bool {
		if c := col.CompareString(out[i].Name, out[j].Name); c != 0 {
			return c < 0
		}
		return !out[i].AllChecked && out[j].AllChecked
	})
	return out
}

func joinText(have, add string) string {
	if have == "" {
		return add
	}
	for _, part := range strings.Split(have, ", ") {
		if part == add {
			return have
		}
	}
	return have + ", " + add
}

// GroupByCategory partitions items by product category and groups each
// bucket by product. Categories are ordered by name; the uncategorized
// bucket comes last.
func GroupByCategory(items []model.ShoppingListItem) []CategoryGroup {
	buckets := make(map[string][]model.ShoppingListItem)
	var names []string
	for _, it := range items {
		cat := strings.TrimSpace(it.ProductCategory)
		if it.ProductID == nil || cat == "" {
			cat = UncategorizedLabel
		}
		if _, ok := buckets[cat]; !ok {
			names = append(names, cat)
		}
		buckets[cat] = append(buckets[cat], it)
	}

	col := newCollator()
	sort.SliceStable(names, func(i, j int) bool {
		if (names[i] == UncategorizedLabel) != (names[j] == UncategorizedLabel) {
			return names[j] == UncategorizedLabel
		}
		return col.CompareString(names[i], names[j]) < 0
	})

	out := make([]CategoryGroup, 0, len(names))
	for _, name := range names {
		out = append(out, CategoryGroup{
			Name:          name,
			Uncategorized: name == UncategorizedLabel,
			Groups:        GroupByProduct(buckets[name]),
		})
	}
	return out
}

// GroupByDish splits items into dish groups and the remaining custom items.
// Each dish reports its servings from state. memberNames, which may be nil,
// labels the source member of each dish. Dishes are ordered by meal name,
// then member name; items within a dish by name.
func GroupByDish(items []model.ShoppingListItem, state *model.ShoppingListState, memberNames map[int64]string) ([]DishGroup, []ProductGroup) {
	dishes := make(map[model.DishKey]*DishGroup)
	var order []model.DishKey
	var custom []model.ShoppingListItem

	for _, it := range items {
		k, ok := model.DishKeyOf(it)
		if !ok {
			custom = append(custom, it)
			continue
		}
		d, ok := dishes[k]
		if !ok {
			d = &DishGroup{
				DishKey:    k,
				MealName:   it.MealName,
				MemberName: memberNames[k.SourceUserID],
				Servings:   state.Servings(k),
				AllChecked: true,
			}
			dishes[k] = d
			order = append(order, k)
		}
		d.Items = append(d.Items, it)
		d.AllChecked = d.AllChecked && it.IsChecked
		d.AnyChecked = d.AnyChecked || it.IsChecked
	}

	col := newCollator()
	out := make([]DishGroup, 0, len(order))
	for _, k := range order {
		d := dishes[k]
		sort.SliceStable(d.Items, func(i, j int) bool {
			return col.CompareString(d.Items[i].Name, d.Items[j].Name) < 0
		})
		d.ItemIDs = make([]int64, 0, len(d.Items))
		for _, it := range d.Items {
			d.ItemIDs = append(d.ItemIDs, it.ID)
		}
		out = append(out, *d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := col.CompareString(out[i].MealName, out[j].MealName); c != 0 {
			return c < 0
		}
		return col.CompareString(out[i].MemberName, out[j].MemberName) < 0
	})

	return out, GroupByProduct(custom)
}

// View is a grouped snapshot of a household's list.
type View struct {
	GroupBy    Mode            `json:"group_by"`
	StartDate  *string         `json:"start_date"`
	EndDate    *string         `json:"end_date"`
	Version    int64           `json:"version"`
	ItemCount  int             `json:"item_count"`
	Checked    int             `json:"checked"`
	Categories []CategoryGroup `json:"categories,omitempty"`
	Products   []ProductGroup  `json:"products,omitempty"`
	Dishes     []DishGroup     `json:"dishes,omitempty"`
	Custom     []ProductGroup  `json:"custom,omitempty"`
}

// BuildView groups items according to mode.
func BuildView(mode Mode, items []model.ShoppingListItem, state *model.ShoppingListState, memberNames map[int64]string) View {
	v := View{GroupBy: mode, ItemCount: len(items)}
	if state != nil {
		v.StartDate = state.GeneratedStartDate
		v.EndDate = state.GeneratedEndDate
		v.Version = state.Version
	}
	for _, it := range items {
		if it.IsChecked {
			v.Checked++
		}
	}
	switch mode {
	case ModeProduct:
		v.Products = GroupByProduct(items)
	case ModeDish:
		v.Dishes, v.Custom = GroupByDish(items, state, memberNames)
	default:
		v.GroupBy = ModeCategory
		v.Categories = GroupByCategory(items)
	}
	return v
}
