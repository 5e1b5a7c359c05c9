package pgentity

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// EagerLoadMany loads the children of all parents with one query on children and
// passes each parent its group. childForeignKey is the child column holding the
// parent id; parents without children receive nil.
func EagerLoadMany[P any, C any, PC interface {
	*C
	Entity
}](ctx context.Context, children *Repository[C, PC], parents []P, parentID func(P) uuid.UUID, childForeignKey string, set func(parent P, children []PC)) error {
	if len(parents) == 0 {
		return nil
	}
	fi, ok := children.mapping.FieldsByColumn[strings.ToLower(childForeignKey)]
	if !ok {
		return &ORMError{Code: ErrCodeInvalidColumn, Message: fmt.Sprintf("child foreign key column not found in struct: %s", childForeignKey)}
	}
	ids := make([]uuid.UUID, 0, len(parents))
	for _, p := range parents {
		ids = append(ids, parentID(p))
	}
	found, err := children.FindNamed(ctx, childForeignKey+" IN :ids", map[string]any{"ids": ids})
	if err != nil {
		return err
	}
	groups := make(map[string][]PC, len(parents))
	for _, c := range found {
		fk := fmt.Sprint(reflect.ValueOf(c).Elem().FieldByIndex(fi.Index).Interface())
		groups[fk] = append(groups[fk], c)
	}
	for _, p := range parents {
		set(p, groups[parentID(p).String()])
	}
	return nil
}

// LazyLoadMany loads the children of a single parent.
func LazyLoadMany[C any, PC interface {
	*C
	Entity
}](ctx context.Context, children *Repository[C, PC], parentID uuid.UUID, childForeignKey string) ([]PC, error) {
	return children.Find(ctx, Eq(childForeignKey, parentID))
}
