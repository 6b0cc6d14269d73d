package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWidenCost(t *testing.T) {
	assert := assert.New(t)

	{
		c, ok := WidenCost(Integer, Integer)
		assert.True(ok)
		assert.Equal(0, c)
	}
	{
		c, ok := WidenCost(Integer, Float)
		assert.True(ok)
		assert.Equal(2, c)
	}
	{
		c, ok := WidenCost(Integer, Decimal(19, 2))
		assert.True(ok)
		assert.Equal(1, c)
	}
	{
		_, ok := WidenCost(Float, Integer)
		assert.False(ok)
	}
	{
		// never string to number
		_, ok := WidenCost(String, Integer)
		assert.False(ok)
		_, ok = WidenCost(Integer, String)
		assert.False(ok)
	}
	{
		c, ok := WidenCost(Null, Date)
		assert.True(ok)
		assert.Equal(1, c)
	}
	{
		_, ok := WidenCost(Decimal(10, 4), Decimal(10, 2))
		assert.False(ok)
	}
}

func TestLeastRestrictive(t *testing.T) {
	assert := assert.New(t)

	{
		x, ok := LeastRestrictive(Integer, Float)
		assert.True(ok)
		assert.Equal(Float, x)
	}
	{
		x, ok := LeastRestrictive(Decimal(5, 2), Integer)
		assert.True(ok)
		assert.Equal(Decimal(21, 2), x)
	}
	{
		x, ok := LeastRestrictive(Null, String)
		assert.True(ok)
		assert.Equal(String, x)
	}
	{
		_, ok := LeastRestrictive(String, Integer)
		assert.False(ok)
	}
	assert.True(Comparable(Date, Date))
	assert.False(Comparable(Date, Timestamp))
}

func TestParseType(t *testing.T) {
	assert := assert.New(t)

	for _, x := range []struct {
		in  string
		out Type
	}{
		{"integer", Integer},
		{"BIGINT", Integer},
		{"varchar", String},
		{"Double", Float},
		{"bool", Boolean},
		{"date", Date},
		{"TIMESTAMP", Timestamp},
		{"DECIMAL(15,2)", Decimal(15, 2)},
		{"decimal(10)", Decimal(10, 0)},
	} {
		ty, err := Parse(x.in)
		assert.Nil(err, x.in)
		assert.Equal(x.out, ty, x.in)
	}

	_, err := Parse("blob")
	assert.NotNil(err)
	_, err = Parse("decimal(2,5)")
	assert.NotNil(err)
	assert.Equal("DECIMAL(15,2)", Decimal(15, 2).String())
}

func TestSchema(t *testing.T) {
	assert := assert.New(t)

	s := Schema{
		{Name: "a", Type: Integer},
		{Name: "b", Type: String, Nullable: true},
	}
	assert.Equal([]string{"a", "b"}, s.Names())
	assert.Equal("(a INTEGER NOT NULL, b STRING)", s.String())
	assert.True(s.Equal(s.Concat(nil)))
	assert.False(s.Equal(s.Nullable()))
	assert.Equal(4, s.Concat(s).Len())
}
