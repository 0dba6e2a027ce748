// Package catalog holds the example models served by the default server:
// directors with their movies, and users with their addresses.
package catalog

import (
	"modelgraph/internal/model"
	"modelgraph/internal/naming"
)

// Director directs movies.
type Director struct {
	ID     int     `db:"id,pk"`
	Name   string  `db:"name"`
	Movies []Movie `rel:"id,director_id"`
}

// Movie is one film. DirectorID is nullable, so Director may be nil.
type Movie struct {
	ID              int       `db:"id,pk"`
	Title           string    `db:"title"`
	ImdbID          string    `db:"imdb_id"`
	Year            int       `db:"year"`
	ImageURL        string    `db:"image_url"`
	ImdbRating      float64   `db:"imdb_rating"`
	ImdbRatingCount string    `db:"imdb_rating_count"`
	Genres          []string  `db:"genres"`
	DirectorID      *int      `db:"director_id"`
	Director        *Director `rel:"director_id,id"`
}

// Address is shared by any number of users.
type Address struct {
	ID      int    `db:"id,pk"`
	Street  string `db:"street"`
	State   string `db:"state"`
	Country string `db:"country"`
	Zip     string `db:"zip"`
	Users   []User `rel:"id,address_id"`
}

// User optionally lives at an Address.
type User struct {
	ID        int      `db:"id,pk"`
	Age       int      `db:"age"`
	Password  *string  `db:"password"`
	AddressID *int     `db:"address_id"`
	Address   *Address `rel:"address_id,id"`
}

// Models returns one zero value per catalog model, parents first.
func Models() []any {
	return []any{Director{}, Movie{}, Address{}, User{}}
}

// Entities reflects every catalog model.
func Entities(namer *naming.Namer) ([]*model.Entity, error) {
	return model.ReflectAll(namer, Models()...)
}
