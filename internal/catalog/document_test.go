package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
)

const sampleDocument = `
shop: Gadget Hub
url: https://gadgets.example.test
categories:
  - id: 224
    name: Smartphones
  - id: 15
    name: Accessories
  - name: Missing id
goods:
  - id: 4216292
    category: 224
    model: apple/iphone/xs-max
    name: Apple iPhone XS Max 512GB (gold)
    price: 110000
    price_rrc: 116990
    quantity: 14
    parameters:
      "Screen (inch)": 6.5
      "Resolution (px)": 2688x1242
      "Memory (GB)": 512
      "Color": gold
  - id: 4216313
    category: 224
    model: apple/iphone/xr
    name: Apple iPhone XR 256GB (red)
    price_rrc: 69990
    quantity: 9
    parameters:
      "Color": red
  - id: 4672670
    category: 15
    model: cases/leather
    name: Leather case
    price: 1500
    price_rrc: 1990
    quantity: 100
    parameters: {}
`

func TestParseDocumentTypedEntries(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "Gadget Hub", doc.ShopName())
	require.NotNil(t, doc.URL)
	assert.Equal(t, "https://gadgets.example.test", *doc.URL)

	require.Len(t, doc.Categories, 3)
	assert.True(t, doc.Categories[0].valid())
	assert.False(t, doc.Categories[2].valid())

	require.Len(t, doc.Goods, 3)
	first := doc.Goods[0]
	require.True(t, first.valid())
	assert.EqualValues(t, 110000, *first.Price)
	assert.Equal(t, []Parameter{
		{Name: "Color", Value: "gold"},
		{Name: "Memory (GB)", Value: "512"},
		{Name: "Resolution (px)", Value: "2688x1242"},
		{Name: "Screen (inch)", Value: "6.5"},
	}, first.SortedParameters())

	assert.Nil(t, doc.Goods[1].Price)
	assert.False(t, doc.Goods[1].valid())

	assert.True(t, doc.Goods[2].valid())
	assert.Empty(t, doc.Goods[2].Parameters)
}

func TestParseDocumentMissingTopLevelKeys(t *testing.T) {
	cases := map[string]string{
		"no goods":      "shop: A\ncategories: []\n",
		"no categories": "shop: A\ngoods: []\n",
		"blank shop":    "shop: ' '\ncategories: []\ngoods: []\n",
		"null goods":    "shop: A\ncategories: []\ngoods:\n",
		"scalar goods":  "shop: A\ncategories: []\ngoods: nope\n",
		"empty":         "",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument(strings.NewReader(body))
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeSchema, typed.Code())
			assert.Equal(t, "insufficient arguments", typed.Message())
		})
	}
}

func TestParseDocumentMalformedEntriesAreKept(t *testing.T) {
	body := `
shop: A
categories:
  - just-a-string
  - id: seven
    name: Seven
goods:
  - id: 1
    category: 7
    model: m
    name: n
    price: 10
    price_rrc: 12
    quantity: lots
    parameters: {}
`
	doc, err := ParseDocument(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, doc.Categories, 2)
	assert.False(t, doc.Categories[0].valid())
	assert.False(t, doc.Categories[1].valid())
	require.Len(t, doc.Goods, 1)
	assert.Nil(t, doc.Goods[0].Quantity)
	assert.False(t, doc.Goods[0].valid())
}

func TestParseDocumentOutOfRangeNumbersInvalidateEntry(t *testing.T) {
	body := `
shop: A
categories:
  - id: 7
    name: Seven
goods:
  - id: 1e19
    category: 7
    model: m
    name: huge id
    price: 10
    price_rrc: 12
    quantity: 1
    parameters: {}
  - id: 2
    category: 7
    model: m
    name: huge stock
    price: 10
    price_rrc: 12
    quantity: 3000000000
    parameters: {}
  - id: 3
    category: 7
    model: m
    name: fine
    price: 10
    price_rrc: 12
    quantity: 2147483647
    parameters: {}
`
	doc, err := ParseDocument(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, doc.Goods, 3)
	assert.Nil(t, doc.Goods[0].ID)
	assert.False(t, doc.Goods[0].valid())
	require.NotNil(t, doc.Goods[1].Quantity)
	assert.False(t, doc.Goods[1].valid())
	assert.True(t, doc.Goods[2].valid())

	assert.Nil(t, asInt(-9.3e18))
	assert.Nil(t, asInt(float64(1<<63)))
	require.NotNil(t, asInt(float64(1<<62)))
	assert.EqualValues(t, int64(1)<<62, *asInt(float64(1<<62)))
}

func TestParseDocumentAcceptsJSON(t *testing.T) {
	body := `{"shop":"A","categories":[{"id":1,"name":"C"}],"goods":[{"id":5,"category":1,"model":"m","name":"n","price":3,"price_rrc":4,"quantity":2,"parameters":{"k":"v"}}]}`
	doc, err := ParseDocument(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, doc.Goods, 1)
	assert.True(t, doc.Goods[0].valid())
	assert.Equal(t, map[string]string{"k": "v"}, doc.Goods[0].Parameters)
}

func TestParseDocumentRejectsBrokenSyntax(t *testing.T) {
	_, err := ParseDocument(strings.NewReader("shop: [unterminated"))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSchema))
}
