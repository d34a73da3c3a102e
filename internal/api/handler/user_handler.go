package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rolegate/rolegate/internal/core/domain"
	"github.com/rolegate/rolegate/internal/core/ports"
)

// UserHandler serves approvals and role-scoped user management.
type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Approve approves a pending user on behalf of the caller.
//
// @Summary      Approve a pending user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        userId      path      string  true   "User to approve"
// @Param        approverId  query     string  false  "Approver id; defaults to the caller"
// @Success      200         {object}  approvalResponse
// @Failure      401         {object}  ErrorResponse
// @Failure      403         {object}  approvalDeniedResponse
// @Failure      404         {object}  ErrorResponse
// @Router       /api/users/approve/{userId} [post]
func (h *UserHandler) Approve(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	approverID := c.QueryParam("approverId")
	if approverID == "" {
		approverID = p.Subject
	}
	// Only administrators may act on behalf of another approver.
	if approverID != p.Subject && p.Role != string(domain.RoleAdmin) {
		return domain.ErrForbidden
	}

	res, err := h.users.Approve(c.Request().Context(), c.Param("userId"), approverID)
	if errors.Is(err, domain.ErrApprovalDenied) && res != nil {
		return c.JSON(http.StatusForbidden, approvalDeniedResponse{
			Error: res.Message,
			User:  toUserResponse(res.User),
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, approvalResponse{
		User:    toUserResponse(res.User),
		Outcome: string(res.Outcome),
		Message: res.Message,
	})
}

// Pending lists the users awaiting the caller's approval.
//
// @Summary      List users awaiting the caller's approval
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /api/users/pending [get]
func (h *UserHandler) Pending(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	views, err := h.users.ListPending(c.Request().Context(), domain.Role(p.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(views))
}

// List returns every user of a role.
//
// @Summary      List users of a role
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string  true  "students, class-teachers, hods, principals or admins"
// @Success      200         {array}   userResponse
// @Failure      400         {object}  ErrorResponse
// @Failure      401         {object}  ErrorResponse
// @Router       /api/users/{collection} [get]
// @Router       /api/users/role/{role} [get]
func (h *UserHandler) List(c echo.Context) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}

	views, err := h.users.ListByRole(c.Request().Context(), role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(views))
}

// Get returns a single user of a role.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string  true  "User collection"
// @Param        id          path      string  true  "User id"
// @Success      200         {object}  userResponse
// @Failure      404         {object}  ErrorResponse
// @Router       /api/users/{collection}/{id} [get]
// @Router       /api/users/role/{role}/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}

	view, err := h.users.GetByRole(c.Request().Context(), role, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*view))
}

// Update replaces the profile fields of a user.
//
// @Summary      Replace a user's profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string             true  "User collection"
// @Param        id          path      string             true  "User id"
// @Param        body        body      userUpdateRequest  true  "Profile"
// @Success      200         {object}  userResponse
// @Failure      400         {object}  ErrorResponse
// @Failure      404         {object}  ErrorResponse
// @Failure      409         {object}  ErrorResponse
// @Router       /api/users/{collection}/{id} [put]
// @Router       /api/users/role/{role}/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	var req userUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.users.UpdateByRole(c.Request().Context(), role, c.Param("id"), ports.UserUpdate{
		Name:              req.Name,
		Email:             req.Email,
		ClassOrDepartment: req.ClassOrDepartment,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*view))
}

// Patch updates only the profile fields present in the body.
//
// @Summary      Partially update a user's profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection  path      string            true  "User collection"
// @Param        id          path      string            true  "User id"
// @Param        body        body      userPatchRequest  true  "Fields to change"
// @Success      200         {object}  userResponse
// @Failure      400         {object}  ErrorResponse
// @Failure      404         {object}  ErrorResponse
// @Router       /api/users/{collection}/{id} [patch]
// @Router       /api/users/role/{role}/{id} [patch]
func (h *UserHandler) Patch(c echo.Context) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}
	var req userPatchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	view, err := h.users.PatchByRole(c.Request().Context(), role, c.Param("id"), toUserPatch(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(*view))
}

// Delete removes a user.
//
// @Summary      Delete a user
// @Tags         users
// @Security     BearerAuth
// @Param        collection  path  string  true  "User collection"
// @Param        id          path  string  true  "User id"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /api/users/{collection}/{id} [delete]
// @Router       /api/users/role/{role}/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	role, err := roleParam(c)
	if err != nil {
		return err
	}

	if err := h.users.DeleteByRole(c.Request().Context(), role, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// roleParam resolves either the :collection or the :role path segment.
func roleParam(c echo.Context) (domain.Role, error) {
	if collection := c.Param("collection"); collection != "" {
		role, ok := domain.RoleForCollection(collection)
		if !ok {
			return "", echo.NewHTTPError(http.StatusNotFound, "unknown user collection")
		}
		return role, nil
	}
	role, err := domain.ParseRole(c.Param("role"))
	if err != nil {
		return "", domain.NewValidationError("role", "must be one of STUDENT CLASS_TEACHER HOD PRINCIPAL ADMIN")
	}
	return role, nil
}
