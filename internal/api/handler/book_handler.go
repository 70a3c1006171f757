package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/librario/lending-api/internal/core/ports"
)

// BookHandler serves the inventory and circulation endpoints.
type BookHandler struct {
	lending ports.LendingService
}

func NewBookHandler(lending ports.LendingService) *BookHandler {
	return &BookHandler{lending: lending}
}

// ListAvailable handles GET /books.
//
// @Summary      List available books
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   bookResponse
// @Failure      401  {object}  errorResponse
// @Router       /books [get]
func (h *BookHandler) ListAvailable(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	books, err := h.lending.ListAvailable(c.Request().Context(), id.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponses(books))
}

// ListAll handles GET /books/all.
//
// @Summary      List every book, borrowed or not
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   bookResponse
// @Failure      403  {object}  errorResponse
// @Router       /books/all [get]
func (h *BookHandler) ListAll(c echo.Context) error {
	books, err := h.lending.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponses(books))
}

// Get handles GET /books/:id.
//
// @Summary      Get a book
// @Tags         books
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Book ID"
// @Success      200  {object}  bookResponse
// @Failure      404  {object}  errorResponse
// @Router       /books/{id} [get]
func (h *BookHandler) Get(c echo.Context) error {
	book, err := h.lending.GetBook(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponse(book))
}

// Create handles POST /books.
//
// @Summary      Add a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createBookRequest  true  "Book details"
// @Success      201   {object}  bookResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /books [post]
func (h *BookHandler) Create(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req createBookRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	book, err := h.lending.CreateBook(c.Request().Context(), id.UserID, ports.CreateBookInput{
		Code:   req.Code,
		Title:  req.Title,
		Author: req.Author,
		Stock:  *req.Stock,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toBookResponse(book))
}

// Edit handles PATCH /books/:id.
//
// @Summary      Edit a book
// @Tags         books
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Book ID"
// @Param        body  body      editBookRequest  true  "Fields to change"
// @Success      200   {object}  bookResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /books/{id} [patch]
func (h *BookHandler) Edit(c echo.Context) error {
	var req editBookRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	book, err := h.lending.EditBook(c.Request().Context(), c.Param("id"), req.toPatch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponse(book))
}

// Delete handles DELETE /books/:id.
//
// @Summary      Delete a book
// @Tags         books
// @Security     BearerAuth
// @Param        id   path  string  true  "Book ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /books/{id} [delete]
func (h *BookHandler) Delete(c echo.Context) error {
	if err := h.lending.DeleteBook(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Borrow handles PATCH /books/:id/borrow.
//
// @Summary      Borrow a book
// @Tags         circulation
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Book ID"
// @Success      200  {object}  bookResponse
// @Failure      403  {object}  errorResponse  "limit reached, active penalty or already borrowed"
// @Failure      404  {object}  errorResponse
// @Router       /books/{id}/borrow [patch]
func (h *BookHandler) Borrow(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	book, err := h.lending.Borrow(c.Request().Context(), id.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookResponse(book))
}

// Return handles PATCH /books/:id/return.
//
// @Summary      Return a book
// @Description  Returning more than 7 days after borrowing suspends borrowing for 3 days.
// @Tags         circulation
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Book ID"
// @Success      200  {object}  returnResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /books/{id}/return [patch]
func (h *BookHandler) Return(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	result, err := h.lending.Return(c.Request().Context(), id.UserID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReturnResponse(result))
}

// Borrowers handles GET /books/borrowers.
//
// @Summary      List users currently holding books
// @Tags         circulation
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   borrowerResponse
// @Failure      403  {object}  errorResponse
// @Router       /books/borrowers [get]
func (h *BookHandler) Borrowers(c echo.Context) error {
	rows, err := h.lending.ListBorrowers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBorrowerResponses(rows))
}
