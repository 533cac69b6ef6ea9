package tests

import (
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/school"
	testutil "github.com/trezcool/darasa/tests"
)

func Test_schoolApi_classes(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Jane Teacher", "jane@test.cd", "s3cretpwd", false)
	token := getToken(t, usr)

	art := testutil.CreateClassroom(t, schoolRepo, "Art Club", "Grade 4", "2026-2027")
	primary := testutil.CreateClassroom(t, schoolRepo, "Primary Class", "Grade 4", "2026-2027")

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/v1/classes",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Get all (ordered by name)", method: http.MethodGet, path: "/v1/classes", token: token,
			wantCode: http.StatusOK, wantData: marchallList(t, art, primary),
		},
		{
			name: "search", method: http.MethodGet, path: "/v1/classes?search=art", token: token,
			wantCode: http.StatusOK, wantData: marchallList(t, art),
		},
		{
			name: "search (unknown)", method: http.MethodGet, path: "/v1/classes?search=lol", token: token,
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
		{
			name: "retrieve", method: http.MethodGet, path: fmt.Sprintf("/v1/classes/%d", art.ID), token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, art),
		},
		{
			name: "retrieve (unknown)", method: http.MethodGet, path: "/v1/classes/999", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "class not found"}),
		},
		{
			name: "retrieve (bad ID)", method: http.MethodGet, path: "/v1/classes/nope", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "create requires fields", method: http.MethodPost, path: "/v1/classes", token: token,
			body: []byte(`{"name": "Science Club"}`), wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, school.NewClassroom{
			Name: "Science Club", Grade: "Grade 5", Section: "B", AcademicYear: "2026-2027",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/classes", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var cls school.Classroom
		decodeObj(t, rec.Body.Bytes(), &cls)
		if cls.ID == 0 || cls.Name != "Science Club" || cls.Section.String != "B" {
			t.Errorf("create = %+v", cls)
		}
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/classes/%d", art.ID), token, []byte(`{"grade": "Grade 5"}`))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var cls school.Classroom
		decodeObj(t, rec.Body.Bytes(), &cls)
		if cls.Grade != "Grade 5" {
			t.Errorf("update grade = %q; want %q", cls.Grade, "Grade 5")
		}
		if cls.Name != art.Name {
			t.Errorf("update touched name: %q", cls.Name)
		}
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, fmt.Sprintf("/v1/classes/%d", primary.ID), token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusNoContent)
		}
		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/classes/%d", primary.ID), token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_schoolApi_students(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Jane Teacher", "jane@test.cd", "s3cretpwd", false)
	token := getToken(t, usr)

	std := testutil.CreateStudent(t, schoolRepo, "Amani", "Okafor", core.NewDate(2015, time.March, 10), "Ngozi Okafor", "ngozi@test.cd")

	t.Run("create", func(t *testing.T) {
		body := marchallObj(t, school.NewStudent{
			FirstName:       "Zawadi",
			LastName:        "Mwangi",
			DateOfBirth:     core.NewDate(2014, time.November, 22),
			GuardianName:    "Wanjiru Mwangi",
			GuardianContact: "wanjiru@test.cd",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var created school.Student
		decodeObj(t, rec.Body.Bytes(), &created)
		if created.ID == 0 || !created.Active {
			t.Errorf("create = %+v", created)
		}
	})

	t.Run("future birth date is rejected", func(t *testing.T) {
		body := marchallObj(t, school.NewStudent{
			FirstName:       "Tiny",
			LastName:        "Tot",
			DateOfBirth:     core.DateOf(time.Now().AddDate(1, 0, 0)),
			GuardianName:    "A Guardian",
			GuardianContact: "guardian@test.cd",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/students", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v\n%s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("retrieve", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, std)}
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/students/%d", std.ID), token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown student", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "student not found"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/students/999", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_schoolApi_enrollment(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Jane Teacher", "jane@test.cd", "s3cretpwd", false)
	token := getToken(t, usr)

	clsA := testutil.CreateClassroom(t, schoolRepo, "Primary Class", "Grade 4", "2026-2027")
	clsB := testutil.CreateClassroom(t, schoolRepo, "Primary Class B", "Grade 5", "2026-2027")
	std := testutil.CreateStudent(t, schoolRepo, "Amani", "Okafor", core.NewDate(2015, time.March, 10), "Ngozi Okafor", "ngozi@test.cd")

	enrollPath := fmt.Sprintf("/v1/students/%d/enroll?class_id=%d", std.ID, clsA.ID)

	t.Run("enroll requires class_id", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "class_id is required"}),
		}
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/students/%d/enroll", std.ID), token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("enroll", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, enrollPath, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var enr school.ClassEnrollment
		decodeObj(t, rec.Body.Bytes(), &enr)
		if enr.ClassID != clsA.ID || enr.StudentID != std.ID || enr.Archived {
			t.Errorf("enroll = %+v", enr)
		}
	})

	t.Run("enrolling twice conflicts", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "student already enrolled in this class"}),
		}
		req, rec := newAuthRequest(http.MethodPost, enrollPath, token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("transfer archives the old enrollment", func(t *testing.T) {
		path := fmt.Sprintf("/v1/students/%d/transfer?new_class_id=%d", std.ID, clsB.ID)
		req, rec := newAuthRequest(http.MethodPost, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/students/%d/enrollments", std.ID), token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var enrs []school.ClassEnrollment
		decodeObj(t, rec.Body.Bytes(), &enrs)
		if len(enrs) != 2 {
			t.Fatalf("enrollments len = %d; want 2", len(enrs))
		}
		for _, enr := range enrs {
			if enr.ClassID == clsA.ID && !enr.Archived {
				t.Errorf("old enrollment still active: %+v", enr)
			}
			if enr.ClassID == clsB.ID && enr.Archived {
				t.Errorf("new enrollment archived: %+v", enr)
			}
		}
	})

	t.Run("transfer back into an old class", func(t *testing.T) {
		path := fmt.Sprintf("/v1/students/%d/transfer?new_class_id=%d", std.ID, clsA.ID)
		req, rec := newAuthRequest(http.MethodPost, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var enr school.ClassEnrollment
		decodeObj(t, rec.Body.Bytes(), &enr)
		if enr.ClassID != clsA.ID || enr.Archived {
			t.Errorf("transfer back = %+v", enr)
		}
	})

	t.Run("archive student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/students/%d/archive", std.ID), token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var archived school.Student
		decodeObj(t, rec.Body.Bytes(), &archived)
		if archived.Active {
			t.Error("archived student is still active")
		}
	})
}

func Test_schoolApi_importStudents(t *testing.T) {
	app := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Jane Teacher", "jane@test.cd", "s3cretpwd", false)
	token := getToken(t, usr)
	cls := testutil.CreateClassroom(t, schoolRepo, "Primary Class", "Grade 4", "2026-2027")

	t.Run("file is required", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "a CSV file is required"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/students/import", token)
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xxx")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("missing column rejects the file", func(t *testing.T) {
		file := "first_name,last_name,date_of_birth,guardian_name\n" +
			"Amani,Okafor,2015-03-10,Ngozi Okafor\n"
		req, rec := newUploadRequest(t, "/v1/students/import", token, "students.csv", file, nil)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v\n%s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("ok", func(t *testing.T) {
		file := "first_name,last_name,date_of_birth,guardian_name,guardian_contact\n" +
			"Amani,Okafor,2015-03-10,Ngozi Okafor,ngozi@test.cd\n" +
			"Zawadi,Mwangi,2014-11-22,Wanjiru Mwangi,wanjiru@test.cd\n"
		fields := map[string]string{"class_id": strconv.Itoa(cls.ID)}
		req, rec := newUploadRequest(t, "/v1/students/import", token, "students.csv", file, fields)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v\n%s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var students []school.Student
		decodeObj(t, rec.Body.Bytes(), &students)
		if len(students) != 2 {
			t.Fatalf("imported students = %d; want 2", len(students))
		}

		req, rec = newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/classes/%d/roster", cls.ID), token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var roster []school.Student
		decodeObj(t, rec.Body.Bytes(), &roster)
		if len(roster) != 2 {
			t.Errorf("roster len = %d; want 2", len(roster))
		}
	})
}
