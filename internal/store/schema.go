package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"HandSync/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Models 全部表，按外键依赖顺序
func Models() []interface{} {
	return []interface{}{
		&model.Game{},
		&model.Player{},
		&model.Hand{},
		&model.HandPlayer{},
		&model.Event{},
		&model.CommunityCard{},
		&model.HandResult{},
		&model.CanonicalPlayer{},
		&model.PlayerMapping{},
	}
}

// Initialize 库表不存在则创建；已存在则校验结构，不一致返回 SchemaError（不做自动迁移）。
// 可重复调用，不会丢数据。
func Initialize(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	migrator := db.Migrator()
	for _, m := range Models() {
		if !migrator.HasTable(m) {
			if err := migrator.CreateTable(m); err != nil {
				return &model.SchemaError{Table: tableName(db, m), Err: fmt.Errorf("建表失败: %w", err)}
			}
			continue
		}
		if err := verifyTable(db, m); err != nil {
			return err
		}
	}
	return nil
}

func tableName(db *gorm.DB, m interface{}) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(m); err != nil {
		return fmt.Sprintf("%T", m)
	}
	return stmt.Schema.Table
}

// verifyTable 已存在的表：期望列必须齐全且类型族一致，主键列一致，
// 外键齐全，不能有模型未知的非空无默认值列
func verifyTable(db *gorm.DB, m interface{}) error {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(m); err != nil {
		return fmt.Errorf("解析模型失败: %w", err)
	}
	sch := stmt.Schema

	columns, err := db.Migrator().ColumnTypes(m)
	if err != nil {
		return &model.SchemaError{Table: sch.Table, Err: fmt.Errorf("读取列信息失败: %w", err)}
	}
	existing := make(map[string]gorm.ColumnType, len(columns))
	for _, c := range columns {
		existing[strings.ToLower(c.Name())] = c
	}

	expected := make(map[string]bool, len(sch.DBNames))
	for _, f := range sch.Fields {
		if f.DBName == "" {
			continue
		}
		expected[strings.ToLower(f.DBName)] = true
		col, ok := existing[strings.ToLower(f.DBName)]
		if !ok {
			return &model.SchemaError{Table: sch.Table, Column: f.DBName, Err: errors.New("缺少列")}
		}
		if pk, ok := col.PrimaryKey(); ok && pk != f.PrimaryKey {
			return &model.SchemaError{Table: sch.Table, Column: f.DBName, Err: fmt.Errorf("主键定义不一致（期望 %v）", f.PrimaryKey)}
		}
		want, got := fieldFamily(f), columnFamily(col.DatabaseTypeName())
		if want != "" && got != "" && want != got {
			return &model.SchemaError{Table: sch.Table, Column: f.DBName, Err: fmt.Errorf("列类型 %s 与期望的 %s 不符", col.DatabaseTypeName(), want)}
		}
	}

	for name, col := range existing {
		if expected[name] {
			continue
		}
		nullable, okNull := col.Nullable()
		_, hasDefault := col.DefaultValue()
		if okNull && !nullable && !hasDefault {
			return &model.SchemaError{Table: sch.Table, Column: col.Name(), Err: errors.New("存在未知的非空列")}
		}
	}

	for _, rel := range sch.Relationships.Relations {
		c := rel.ParseConstraint()
		if c == nil || c.Schema != sch {
			continue
		}
		if !db.Migrator().HasConstraint(m, c.Name) {
			return &model.SchemaError{Table: sch.Table, Err: fmt.Errorf("缺少外键 %s", c.Name)}
		}
	}
	return nil
}

// 类型族：只比较大类，不比较长度和具体方言写法
const (
	familyInt    = "int"
	familyFloat  = "float"
	familyString = "string"
	familyBool   = "bool"
	familyTime   = "time"
	familyBytes  = "bytes"
	familyJSON   = "json"
)

func fieldFamily(f *schema.Field) string {
	switch f.GORMDataType {
	case schema.Int, schema.Uint:
		return familyInt
	case schema.Float:
		return familyFloat
	case schema.String:
		return familyString
	case schema.Bool:
		return familyBool
	case schema.Time:
		return familyTime
	case schema.Bytes:
		return familyBytes
	case "json":
		return familyJSON
	}
	return ""
}

// columnFamily 数据库列类型名归类；无法识别返回空串，不参与比较
func columnFamily(typeName string) string {
	t := strings.ToLower(strings.TrimSpace(typeName))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	switch {
	case t == "":
		return ""
	case strings.HasPrefix(t, "json"):
		return familyJSON
	case strings.HasPrefix(t, "bool"):
		return familyBool
	case strings.Contains(t, "time"), strings.Contains(t, "date"):
		return familyTime
	case strings.Contains(t, "int"), strings.Contains(t, "serial"):
		return familyInt
	case strings.Contains(t, "char"), strings.Contains(t, "text"), strings.Contains(t, "clob"), t == "uuid":
		return familyString
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"),
		strings.Contains(t, "numeric"), strings.Contains(t, "decimal"):
		return familyFloat
	case strings.Contains(t, "blob"), strings.Contains(t, "bytea"), strings.Contains(t, "binary"):
		return familyBytes
	}
	return ""
}

// TableCounts 各表行数
type TableCounts struct {
	Games            int64 `json:"games"`
	Hands            int64 `json:"hands"`
	Players          int64 `json:"players"`
	HandPlayers      int64 `json:"hand_players"`
	Events           int64 `json:"events"`
	CommunityCards   int64 `json:"community_cards"`
	HandResults      int64 `json:"hand_results"`
	CanonicalPlayers int64 `json:"canonical_players"`
	PlayerMappings   int64 `json:"player_mappings"`
}

// Stats 统计各表行数
func Stats(ctx context.Context, db *gorm.DB) (*TableCounts, error) {
	var c TableCounts
	targets := []struct {
		model interface{}
		dst   *int64
	}{
		{&model.Game{}, &c.Games},
		{&model.Hand{}, &c.Hands},
		{&model.Player{}, &c.Players},
		{&model.HandPlayer{}, &c.HandPlayers},
		{&model.Event{}, &c.Events},
		{&model.CommunityCard{}, &c.CommunityCards},
		{&model.HandResult{}, &c.HandResults},
		{&model.CanonicalPlayer{}, &c.CanonicalPlayers},
		{&model.PlayerMapping{}, &c.PlayerMappings},
	}
	for _, t := range targets {
		if err := db.WithContext(ctx).Model(t.model).Count(t.dst).Error; err != nil {
			return nil, fmt.Errorf("统计 %T 失败: %w", t.model, err)
		}
	}
	return &c, nil
}
