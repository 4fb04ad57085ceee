// Package registry ведёт соответствие между id строк garden_items и объектами сцены.
// Доступ однопоточный: реестром владеет цикл контроллера.
package registry

import (
	"errors"
	"sort"
)

var ErrDuplicate = errors.New("id already registered")

// Meta: данные строки, которые нужны доске помимо самого объекта.
type Meta struct {
	ID    string
	Label string
}

type entry[T comparable] struct {
	obj  T
	meta Meta
}

// Registry: id -> (объект, Meta) и обратный индекс объект -> id.
type Registry[T comparable] struct {
	byID  map[string]entry[T]
	byObj map[T]string
}

func New[T comparable]() *Registry[T] {
	return &Registry[T]{
		byID:  make(map[string]entry[T]),
		byObj: make(map[T]string),
	}
}

// Put регистрирует объект. Второй объект под тем же id не допускается.
func (r *Registry[T]) Put(meta Meta, obj T) error {
	if _, ok := r.byID[meta.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := r.byObj[obj]; ok {
		return ErrDuplicate
	}
	r.byID[meta.ID] = entry[T]{obj: obj, meta: meta}
	r.byObj[obj] = meta.ID
	return nil
}

func (r *Registry[T]) Get(id string) (T, Meta, bool) {
	e, ok := r.byID[id]
	return e.obj, e.meta, ok
}

// IDOf: обратный поиск по объекту (события сцены приходят с объектом).
func (r *Registry[T]) IDOf(obj T) (string, bool) {
	id, ok := r.byObj[obj]
	return id, ok
}

// Remove удаляет запись и возвращает её.
func (r *Registry[T]) Remove(id string) (T, Meta, bool) {
	e, ok := r.byID[id]
	if !ok {
		var zero T
		return zero, Meta{}, false
	}
	delete(r.byID, id)
	delete(r.byObj, e.obj)
	return e.obj, e.meta, true
}

// Clear очищает реестр и возвращает снятые объекты.
func (r *Registry[T]) Clear() []T {
	out := make([]T, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e.obj)
	}
	r.byID = make(map[string]entry[T])
	r.byObj = make(map[T]string)
	return out
}

func (r *Registry[T]) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *Registry[T]) Len() int {
	return len(r.byID)
}

// IDs возвращает ключи в отсортированном виде.
func (r *Registry[T]) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Metas: метаданные всех записей, отсортированные по id.
func (r *Registry[T]) Metas() []Meta {
	out := make([]Meta, 0, len(r.byID))
	for _, id := range r.IDs() {
		out = append(out, r.byID[id].meta)
	}
	return out
}
